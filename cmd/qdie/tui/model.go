// Package tui is the interactive bubbletea front end of qdie.
package tui

import (
	"context"
	"time"

	"quantumdie/cmd/qdie/ui"
	"quantumdie/internal/batch"
	"quantumdie/internal/config"
	"quantumdie/internal/dynamics"
	"quantumdie/internal/roll"
	"quantumdie/internal/session"
	"quantumdie/internal/stats"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Deps are the collaborators the model drives.
type Deps struct {
	Config  *config.Config
	Session *session.Session
	Roller  batch.Roller
	// Reloads delivers the config after each change on disk. Optional.
	Reloads <-chan *config.Config
}

// Messages

type rollResultMsg struct {
	rec roll.Record
	err error
}

type batchProgressMsg struct {
	i, n int
}

type batchRecordMsg struct {
	rec roll.Record
}

type batchDoneMsg struct {
	res batch.Result
}

type frameMsg struct {
	gen dynamics.Generation
	at  time.Time
}

type configReloadMsg struct {
	cfg *config.Config
}

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg    *config.Config
	sess   *session.Session
	roller batch.Roller

	animator *dynamics.Animator
	params   dynamics.Params
	frame    dynamics.Frame
	summary  stats.Summary

	batchEvents chan tea.Msg
	batchDelay  time.Duration
	reloads     <-chan *config.Config

	styles   ui.Styles
	keys     keyMap
	spinner  spinner.Model
	progress progress.Model
	help     help.Model
	viewport viewport.Model

	width        int
	height       int
	ready        bool
	showTutorial bool
	tutorialPage int
	quitting     bool
}

// New builds the model. ctx bounds every request the model starts.
func New(ctx context.Context, deps Deps) Model {
	ctx, cancel := context.WithCancel(ctx)

	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	sess := deps.Session
	if sess == nil {
		sess = session.New(cfg.Batch.DefaultSize, cfg.Batch.MaxSize)
	}

	styles := ui.DefaultStyles()
	if cfg.UI.DarkMode {
		styles = ui.NewStyles(ui.DarkTheme())
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)
	vp.KeyMap = scrollKeyMap()

	m := Model{
		ctx:          ctx,
		cancel:       cancel,
		cfg:          cfg,
		sess:         sess,
		roller:       deps.Roller,
		animator:     dynamics.NewAnimator(),
		params:       paramsFrom(cfg),
		batchEvents:  make(chan tea.Msg, 16),
		batchDelay:   cfg.GetBatchDelay(),
		reloads:      deps.Reloads,
		styles:       styles,
		keys:         defaultKeyMap(),
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:         help.New(),
		viewport:     vp,
		width:        80,
		showTutorial: cfg.UI.ShowTutorial,
	}
	m.summary = stats.Compute(sess.History())
	m.syncViewport()
	return m
}

func paramsFrom(cfg *config.Config) dynamics.Params {
	return dynamics.Params{
		Oscillation: cfg.Dynamics.Oscillation,
		Decoherence: cfg.Dynamics.Decoherence,
	}.Clamped()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForReload())
}

// Session exposes the session driven by the model.
func (m Model) Session() *session.Session {
	return m.sess
}

func (m Model) rollCmd(useQEC bool) tea.Cmd {
	ctx, roller := m.ctx, m.roller
	return func() tea.Msg {
		rec, err := roller.RequestRoll(ctx, useQEC)
		return rollResultMsg{rec: rec, err: err}
	}
}

// launchBatch runs the batch on its own goroutine. Events come back through
// batchEvents, read one at a time by waitForBatch.
func (m Model) launchBatch(token *batch.Token, n int, useQEC bool) {
	runner := batch.NewRunner(m.roller, batch.Options{UseQEC: useQEC, Delay: m.batchDelay})
	ctx, events := m.ctx, m.batchEvents

	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}

	go func() {
		res := runner.Run(ctx, n, token, batch.ObserverFuncs{
			Progress: func(i, count int) { send(batchProgressMsg{i: i, n: count}) },
			Record:   func(_ int, rec roll.Record) { send(batchRecordMsg{rec: rec}) },
		})
		send(batchDoneMsg{res: res})
	}()
}

func (m Model) waitForBatch() tea.Cmd {
	return func() tea.Msg {
		return <-m.batchEvents
	}
}

func (m Model) waitForReload() tea.Cmd {
	if m.reloads == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-m.reloads
		if !ok {
			return nil
		}
		return configReloadMsg{cfg: cfg}
	}
}

func (m Model) tickFrame(gen dynamics.Generation) tea.Cmd {
	return tea.Tick(m.cfg.GetFrameInterval(), func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

// restartAnimation starts a new generation for the latest record, if any.
func (m *Model) restartAnimation() tea.Cmd {
	rec, ok := m.sess.Latest()
	if !ok {
		m.animator.Stop()
		m.frame = dynamics.Frame{}
		return nil
	}
	now := time.Now()
	gen := m.animator.Restart(rec, m.params, now)
	frame, ok := m.animator.Frame(gen, now)
	if !ok {
		return nil
	}
	m.frame = frame
	if !frame.Live {
		return nil
	}
	return m.tickFrame(gen)
}
