package tui

import (
	"fmt"
	"strings"

	"quantumdie/cmd/qdie/ui"
	"quantumdie/internal/dynamics"
	"quantumdie/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// wideLayout is the minimum width for the two-column layout.
const wideLayout = 100

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.viewport.View(), m.footerView())
}

func (m *Model) syncViewport() {
	m.viewport.SetContent(m.body())
}

// chromeHeight is the number of lines taken by header and footer.
func (m Model) chromeHeight() int {
	return lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
}

func (m Model) headerView() string {
	state := m.sess.State()
	qec := "qec off"
	if m.sess.UseQEC() {
		qec = "qec on"
	}
	info := m.styles.Muted.Render(fmt.Sprintf("  %s · %s · batch %d · %d rolls",
		state, qec, m.sess.BatchSize(), m.sess.Len()))
	return ui.Logo(m.styles) + info
}

func (m Model) footerView() string {
	var lines []string

	if msg := m.sess.Err(); msg != "" {
		lines = append(lines, m.styles.Error.Render("✗ "+msg))
	}

	if m.sess.State() == session.StateRollingBatch {
		i, n := m.sess.Progress()
		frac := 0.0
		if n > 0 {
			frac = float64(i) / float64(n)
		}
		lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("batch %d/%d ", i, n))+
			m.progress.ViewAs(frac)+m.styles.Muted.Render("  (b to stop)"))
	}

	lines = append(lines, m.styles.Footer.Render(m.help.View(m.keys)))
	return strings.Join(lines, "\n")
}

func (m Model) body() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	colWidth := width
	wide := width >= wideLayout
	if wide {
		colWidth = width/2 - 2
	}

	rec, hasRec := m.sess.Latest()
	rolling := m.sess.Busy()

	var left []string
	if hasRec {
		left = append(left, ui.FaceMap(m.styles, &rec, rolling, m.spinner.View()))
		left = append(left, ui.Details(m.styles, rec))
		if m.sess.UseQEC() || rec.QEC != nil {
			left = append(left, ui.QECPanel(m.styles, rec.QEC))
		}
	} else {
		left = append(left, ui.FaceMap(m.styles, nil, rolling, m.spinner.View()))
	}
	left = append(left, ui.StatsPanel(m.styles, m.summary, colWidth))

	var right []string
	if hasRec {
		right = append(right, ui.WaveFunction(m.styles, rec, colWidth))
	}
	right = append(right, ui.DynamicsPanel(m.styles, m.frame.Amplitudes, m.params, colWidth))
	if len(m.frame.Amplitudes) > 0 {
		right = append(right, ui.StateVectorPanel(m.styles, dynamics.Normalize(m.frame.Amplitudes)))
	}

	leftCol := strings.Join(left, "\n\n")
	rightCol := strings.Join(right, "\n\n")

	var content string
	if wide {
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(colWidth).Render(leftCol),
			"   ",
			lipgloss.NewStyle().Width(colWidth).Render(rightCol),
		)
	} else {
		content = leftCol + "\n\n" + rightCol
	}

	if m.showTutorial {
		content += "\n\n" + m.styles.RenderDivider(width) + "\n" +
			ui.Tutorial(m.styles, m.tutorialPage, width-4) + "\n" +
			m.styles.Muted.Render(fmt.Sprintf("concept %d/%d · n next · t hide", m.tutorialPage%len(ui.Concepts)+1, len(ui.Concepts)))
	}
	return content
}
