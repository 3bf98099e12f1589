package ui

import (
	"fmt"
	"strconv"
	"strings"

	"quantumdie/internal/dynamics"
	"quantumdie/internal/roll"
	"quantumdie/internal/stats"

	"github.com/charmbracelet/lipgloss"
)

// qubitLabels are the basis labels |000⟩..|111⟩.
func qubitLabels() []string {
	labels := make([]string, roll.Faces)
	for i := range labels {
		labels[i] = roll.QubitLabel(i)
	}
	return labels
}

// FaceMap draws the eight octahedron faces in two rows, highlighting the
// measured face and its entangled opposite. While rolling, the spinner is
// shown instead of a result.
func FaceMap(s Styles, rec *roll.Record, rolling bool, spinner string) string {
	row := func(from int) string {
		cells := make([]string, 0, 4)
		for v := from; v < from+4; v++ {
			style := s.Face
			switch {
			case rolling || rec == nil:
			case v == rec.Roll:
				style = s.FaceResult
			case v == rec.FaceDown:
				style = s.FaceEntangled
			}
			cells = append(cells, style.Render(strconv.Itoa(v)))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}

	var caption string
	switch {
	case rolling:
		caption = s.Spinner.Render(spinner) + s.Muted.Render(" collapsing wave function…")
	case rec == nil:
		caption = s.Muted.Render("press r to roll")
	default:
		caption = s.Title.Render(fmt.Sprintf("Result %d", rec.Roll)) +
			s.Muted.Render(fmt.Sprintf("  ·  entangled face %d", rec.FaceDown))
	}

	return lipgloss.JoinVertical(lipgloss.Left, row(0), row(4), caption)
}

// Details lists the fields of a record.
func Details(s Styles, rec roll.Record) string {
	t := NewSimpleTable("Measurement")
	t.AddRow("Qubit state", rec.QubitState)
	t.AddRow("Roll", fmt.Sprintf("%d (%s, cos %.0f)", rec.Roll, rec.RollParity, rec.RollCos))
	t.AddRow("Face down", fmt.Sprintf("%d (%s, cos %.0f)", rec.FaceDown, rec.FaceDownParity, rec.FaceDownCos))
	t.AddRow("Hamiltonian", strconv.Itoa(rec.Hamiltonian))
	t.AddRow("Entanglement", fmt.Sprintf("%d + %d = %d", rec.Roll, rec.FaceDown, rec.Roll+rec.FaceDown))
	return t.View(s)
}

// QECPanel shows the three physical measurements, marks the ones that
// disagree with the majority and the resulting logical value.
func QECPanel(s Styles, q *roll.QEC) string {
	if q == nil {
		return s.Muted.Render("error correction off (press e)")
	}

	errIdx := map[int]bool{}
	for _, i := range q.ErrorIndices() {
		errIdx[i] = true
	}

	cells := make([]string, 0, len(q.PhysicalRolls))
	for i, v := range q.PhysicalRolls {
		style := s.Face
		label := strconv.Itoa(v)
		if errIdx[i] {
			style = s.Face.BorderForeground(Destructive).Foreground(Destructive)
			label += "✗"
		}
		cells = append(cells, style.Render(label))
	}

	status := s.Success.Render("no error detected")
	if q.ErrorOccurred {
		status = s.Warning.Render("bit flip detected")
		if q.WasCorrected {
			status += s.Success.Render(" · corrected")
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Error correction"),
		lipgloss.JoinHorizontal(lipgloss.Center, append(cells, s.Muted.Render("  → logical "), s.FaceResult.Render(strconv.Itoa(q.LogicalResult())))...),
		status,
	)
}

// WaveFunction charts the collapsed wave function of a record.
func WaveFunction(s Styles, rec roll.Record, width int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Wave function"),
		BarChart(s, qubitLabels(), rec.WaveFunction, 1, width, "%.2f"),
	)
}

// StatsPanel renders the descriptive statistics and outcome distribution.
func StatsPanel(s Styles, sum stats.Summary, width int) string {
	if sum.Count == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, s.Title.Render("Statistics"), s.Muted.Render("no rolls yet"))
	}

	t := NewSimpleTable("Statistics")
	t.AddRow("Rolls", strconv.Itoa(sum.Count))
	t.AddRow("Mean", fmt.Sprintf("%.3f", sum.Mean))
	t.AddRow("Std dev", fmt.Sprintf("%.3f", sum.StdDev))
	t.AddRow("Even / odd", fmt.Sprintf("%d / %d", sum.EvenCount, sum.OddCount()))
	if sum.QECCount > 0 {
		t.AddRow("QEC errors", fmt.Sprintf("%d of %d", sum.QECErrors, sum.QECCount))
	}

	labels := make([]string, len(sum.Distribution))
	values := make([]float64, len(sum.Distribution))
	for i, b := range sum.Distribution {
		labels[i] = strconv.Itoa(b.Value)
		values[i] = b.Percentage
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		t.View(s),
		s.Subtitle.Render("distribution"),
		BarChart(s, labels, values, 100, width, "%5.1f%%"),
	)
}

// DynamicsPanel charts the animated amplitudes with the current settings.
func DynamicsPanel(s Styles, amps []float64, p dynamics.Params, width int) string {
	mode := "static"
	switch {
	case p.Oscillation && p.Decoherence > 0:
		mode = "oscillating, decohering"
	case p.Oscillation:
		mode = "oscillating"
	case p.Decoherence > 0:
		mode = "decohering"
	}
	header := s.Title.Render("Dynamics") + s.Muted.Render(fmt.Sprintf("  %s · decoherence %.2f", mode, p.Decoherence))
	if len(amps) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, s.Muted.Render("no roll to animate"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, BarChart(s, qubitLabels(), amps, 1, width, "%.3f"))
}

// StateVectorPanel shows the normalised state vector, highlighting the
// dominant basis state.
func StateVectorPanel(s Styles, sv dynamics.StateVector) string {
	if len(sv.Entries) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(s.Title.Render("State vector |ψ⟩"))
	for _, e := range sv.Entries {
		line := fmt.Sprintf("%s %6.2f%%", e.Label, e.Probability)
		if e.Index == sv.Dominant {
			line = s.Badge.Render(line)
		} else {
			line = s.Body.Render(line)
		}
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	return sb.String()
}
