package tui

import (
	"math"

	"quantumdie/internal/config"
	"quantumdie/internal/dynamics"
	"quantumdie/internal/logging"
	"quantumdie/internal/session"
	"quantumdie/internal/stats"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const decoherenceStep = 0.05

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			if m.quitting {
				return m, cmd
			}
			cmds = append(cmds, cmd)
		} else {
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			cmds = append(cmds, vpCmd)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, msg.Width-24)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(3, msg.Height-m.chromeHeight())
		m.ready = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case rollResultMsg:
		m.sess.Finish()
		if msg.err != nil {
			m.sess.SetError(msg.err)
			break
		}
		m.sess.Append(msg.rec)
		m.summary = stats.Compute(m.sess.History())
		cmds = append(cmds, m.restartAnimation())

	case batchProgressMsg:
		m.sess.SetProgress(msg.i, msg.n)
		cmds = append(cmds, m.waitForBatch())

	case batchRecordMsg:
		m.sess.Append(msg.rec)
		m.summary = stats.Compute(m.sess.History())
		cmds = append(cmds, m.restartAnimation(), m.waitForBatch())

	case batchDoneMsg:
		m.sess.Finish()
		if msg.res.Err != nil {
			m.sess.SetError(msg.res.Err)
		}
		logging.UIDebug("batch %s done: %d/%d cancelled=%t", msg.res.RunID, msg.res.Completed, msg.res.Requested, msg.res.Cancelled)

	case frameMsg:
		frame, ok := m.animator.Frame(msg.gen, msg.at)
		if !ok {
			break
		}
		m.frame = frame
		if frame.Live {
			cmds = append(cmds, m.tickFrame(msg.gen))
		}

	case configReloadMsg:
		cmds = append(cmds, m.applyConfig(msg.cfg), m.waitForReload())
	}

	m.syncViewport()
	return m, tea.Batch(cmds...)
}

// handleKey returns handled=false for keys left to the viewport.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.sess.StopBatch()
		m.animator.Stop()
		m.cancel()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Roll):
		if m.roller == nil || m.sess.BeginSingle() != nil {
			return nil, true
		}
		logging.UIDebug("single roll qec=%t", m.sess.UseQEC())
		return m.rollCmd(m.sess.UseQEC()), true

	case key.Matches(msg, m.keys.Batch):
		if m.sess.State() == session.StateRollingBatch {
			m.sess.StopBatch()
			return nil, true
		}
		if m.roller == nil {
			return nil, true
		}
		token, err := m.sess.BeginBatch()
		if err != nil {
			return nil, true
		}
		n := m.sess.BatchSize()
		logging.UIDebug("batch start n=%d qec=%t", n, m.sess.UseQEC())
		m.launchBatch(token, n, m.sess.UseQEC())
		return m.waitForBatch(), true

	case key.Matches(msg, m.keys.Clear):
		if m.sess.Clear() == nil {
			m.summary = stats.Summary{}
			return m.restartAnimation(), true
		}
		return nil, true

	case key.Matches(msg, m.keys.QEC):
		_ = m.sess.SetUseQEC(!m.sess.UseQEC())
		return nil, true

	case key.Matches(msg, m.keys.BatchUp):
		_ = m.sess.AdjustBatchSize(1)
		return nil, true

	case key.Matches(msg, m.keys.BatchDown):
		_ = m.sess.AdjustBatchSize(-1)
		return nil, true

	case key.Matches(msg, m.keys.Preset):
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(session.BatchPresets) {
			_ = m.sess.SetBatchSize(session.BatchPresets[idx])
		}
		return nil, true

	case key.Matches(msg, m.keys.Oscillation):
		m.params.Oscillation = !m.params.Oscillation
		return m.restartAnimation(), true

	case key.Matches(msg, m.keys.DecoLess):
		m.params = m.stepDecoherence(-decoherenceStep)
		return m.restartAnimation(), true

	case key.Matches(msg, m.keys.DecoMore):
		m.params = m.stepDecoherence(decoherenceStep)
		return m.restartAnimation(), true

	case key.Matches(msg, m.keys.Tutorial):
		m.showTutorial = !m.showTutorial
		return nil, true

	case key.Matches(msg, m.keys.NextPage):
		if m.showTutorial {
			m.tutorialPage++
		}
		return nil, true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		if m.ready {
			m.viewport.Height = max(3, m.height-m.chromeHeight())
		}
		return nil, true
	}
	return nil, false
}

func (m *Model) stepDecoherence(delta float64) dynamics.Params {
	p := m.params
	p.Decoherence = math.Round((p.Decoherence+delta)*100) / 100
	return p.Clamped()
}

// applyConfig takes over the reloaded animation defaults and batch delay.
func (m *Model) applyConfig(cfg *config.Config) tea.Cmd {
	if cfg == nil {
		return nil
	}
	m.cfg = cfg
	m.params = paramsFrom(cfg)
	m.batchDelay = cfg.GetBatchDelay()
	if v, ok := m.roller.(interface{ SetValidate(bool) }); ok {
		v.SetValidate(cfg.Oracle.Validate)
	}
	logging.UIDebug("config reloaded: oscillation=%t decoherence=%.2f", m.params.Oscillation, m.params.Decoherence)
	return m.restartAnimation()
}
