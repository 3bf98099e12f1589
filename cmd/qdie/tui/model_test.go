package tui

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"quantumdie/internal/config"
	"quantumdie/internal/oracle"
	"quantumdie/internal/roll"
	"quantumdie/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoller struct {
	mu     sync.Mutex
	calls  int
	failOn int // 1-based call that fails, 0 = never
	err    error
}

func (f *fakeRoller) RequestRoll(ctx context.Context, useQEC bool) (roll.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn > 0 && f.calls == f.failOn {
		return roll.Record{}, f.err
	}
	rec := roll.Collapsed(f.calls % roll.Faces)
	if useQEC {
		rec.QEC = &roll.QEC{PhysicalRolls: []int{rec.Roll, rec.Roll, rec.Roll}}
	}
	return rec, nil
}

func (f *fakeRoller) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestModel(t *testing.T, r *fakeRoller) Model {
	t.Helper()
	t.Setenv("COLORFGBG", "")
	cfg := config.DefaultConfig()
	cfg.UI.ShowTutorial = false
	m := New(context.Background(), Deps{Config: cfg, Roller: r})
	m.batchDelay = -1
	t.Cleanup(m.cancel)
	return m
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// runBatch feeds batch events back into the model until the batch is done.
func runBatch(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for m.sess.State() == session.StateRollingBatch {
		select {
		case msg := <-m.batchEvents:
			m, _ = update(t, m, msg)
		case <-deadline:
			t.Fatal("batch did not finish")
		}
	}
	return m
}

func TestSingleRoll(t *testing.T) {
	r := &fakeRoller{}
	m := newTestModel(t, r)

	m, cmd := update(t, m, keyMsg("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, session.StateRollingOne, m.sess.State())

	// A second press while rolling is ignored.
	m, again := update(t, m, keyMsg("r"))
	assert.Nil(t, again)

	m, _ = update(t, m, cmd())
	assert.Equal(t, session.StateIdle, m.sess.State())
	assert.Equal(t, 1, m.sess.Len())
	assert.Equal(t, 1, r.Calls())
	assert.Equal(t, 1, m.summary.Count)
	assert.Equal(t, roll.Collapsed(1).WaveFunction, m.frame.Amplitudes, "static animation shows the record")
	assert.Contains(t, m.View(), "Result 1")
}

func TestSingleRollFailureSurfacesMessage(t *testing.T) {
	r := &fakeRoller{failOn: 1, err: &oracle.Failure{Kind: oracle.KindRateLimited, Err: errors.New("429")}}
	m := newTestModel(t, r)

	m, cmd := update(t, m, keyMsg("r"))
	m, _ = update(t, m, cmd())

	assert.Equal(t, oracle.RateLimitMessage, m.sess.Err())
	assert.Zero(t, m.sess.Len())
	assert.Contains(t, m.View(), "Request limit reached")
}

func TestBatchStopsAtFailure(t *testing.T) {
	r := &fakeRoller{failOn: 3, err: errors.New("boom")}
	m := newTestModel(t, r)
	require.NoError(t, m.sess.SetBatchSize(5))

	m, cmd := update(t, m, keyMsg("b"))
	require.NotNil(t, cmd)
	m = runBatch(t, m, cmd)

	assert.Equal(t, 2, m.sess.Len())
	assert.Equal(t, 3, r.Calls())
	assert.Equal(t, "boom", m.sess.Err())
	assert.Equal(t, 2, m.summary.Count)
}

func TestBatchCompletes(t *testing.T) {
	r := &fakeRoller{}
	m := newTestModel(t, r)
	m, _ = update(t, m, keyMsg("e"))
	require.NoError(t, m.sess.SetBatchSize(4))

	m, cmd := update(t, m, keyMsg("b"))
	m = runBatch(t, m, cmd)

	assert.Equal(t, 4, m.sess.Len())
	assert.Empty(t, m.sess.Err())
	assert.Equal(t, 4, m.summary.QECCount)
}

func TestBatchStopKey(t *testing.T) {
	r := &fakeRoller{}
	m := newTestModel(t, r)
	m.batchDelay = time.Hour
	require.NoError(t, m.sess.SetBatchSize(10))

	m, cmd := update(t, m, keyMsg("b"))
	// Wait for the first record, then stop during the pause.
	for m.sess.Len() == 0 {
		m, _ = update(t, m, <-m.batchEvents)
	}
	m, _ = update(t, m, keyMsg("b"))
	m = runBatch(t, m, cmd)

	assert.Equal(t, 1, m.sess.Len())
	assert.Equal(t, 1, r.Calls())
	assert.Empty(t, m.sess.Err())
}

func TestSettingsKeys(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})

	m, _ = update(t, m, keyMsg("2"))
	assert.Equal(t, 50, m.sess.BatchSize())
	m, _ = update(t, m, keyMsg("+"))
	assert.Equal(t, 51, m.sess.BatchSize())
	m, _ = update(t, m, keyMsg("-"))
	m, _ = update(t, m, keyMsg("-"))
	assert.Equal(t, 49, m.sess.BatchSize())

	m, _ = update(t, m, keyMsg("e"))
	assert.True(t, m.sess.UseQEC())

	m, _ = update(t, m, keyMsg("]"))
	m, _ = update(t, m, keyMsg("]"))
	assert.InDelta(t, 0.10, m.params.Decoherence, 1e-9)
	m, _ = update(t, m, keyMsg("["))
	assert.InDelta(t, 0.05, m.params.Decoherence, 1e-9)

	m, _ = update(t, m, keyMsg("h"))
	assert.True(t, m.params.Oscillation)

	m, _ = update(t, m, keyMsg("t"))
	assert.True(t, m.showTutorial)
	m, _ = update(t, m, keyMsg("n"))
	assert.Equal(t, 1, m.tutorialPage)
}

func TestDecoherenceClamped(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})
	m, _ = update(t, m, keyMsg("["))
	assert.Zero(t, m.params.Decoherence)
	for i := 0; i < 30; i++ {
		m, _ = update(t, m, keyMsg("]"))
	}
	assert.Equal(t, 1.0, m.params.Decoherence)
}

func TestClearHistory(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})
	m, cmd := update(t, m, keyMsg("r"))
	m, _ = update(t, m, cmd())
	require.Equal(t, 1, m.sess.Len())

	m, _ = update(t, m, keyMsg("c"))
	assert.Zero(t, m.sess.Len())
	assert.Zero(t, m.summary.Count)
	assert.Empty(t, m.frame.Amplitudes)
}

func TestLiveAnimationSchedulesFrames(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})
	m, _ = update(t, m, keyMsg("]"))

	m, cmd := update(t, m, keyMsg("r"))
	m, frameCmd := update(t, m, cmd())
	require.NotNil(t, frameCmd, "decoherence keeps the animation running")
	gen := m.animator.Current()

	m, next := update(t, m, frameMsg{gen: gen, at: time.Now().Add(time.Second)})
	assert.NotNil(t, next)
	assert.Less(t, m.frame.Amplitudes[1], 1.0)

	// Frames for an older generation are dropped.
	m, _ = update(t, m, keyMsg("h"))
	before := m.frame
	m, stale := update(t, m, frameMsg{gen: gen, at: time.Now().Add(time.Minute)})
	assert.Nil(t, stale)
	assert.Equal(t, before, m.frame)
}

func TestConfigReload(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})
	cfg := config.DefaultConfig()
	cfg.Dynamics.Oscillation = true
	cfg.Dynamics.Decoherence = 0.3

	m, _ = update(t, m, configReloadMsg{cfg: cfg})
	assert.True(t, m.params.Oscillation)
	assert.InDelta(t, 0.3, m.params.Decoherence, 1e-9)
}

func TestConfigReloadDuringBatch(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	var mu sync.Mutex
	calls := 0
	collab := oracle.CollaboratorFunc(func(context.Context, oracle.Request) (oracle.Response, error) {
		mu.Lock()
		calls++
		rec := roll.Collapsed(calls % roll.Faces)
		mu.Unlock()
		data, err := json.Marshal(rec)
		return oracle.Response{Text: string(data), Model: "fake"}, err
	})
	roller := oracle.NewRoller(collab, true)

	cfg := config.DefaultConfig()
	cfg.UI.ShowTutorial = false
	m := New(context.Background(), Deps{Config: cfg, Roller: roller})
	m.batchDelay = -1
	t.Cleanup(m.cancel)
	require.NoError(t, m.sess.SetBatchSize(20))

	m, cmd := update(t, m, keyMsg("b"))
	require.NotNil(t, cmd)

	deadline := time.After(5 * time.Second)
	for i := 0; m.sess.State() == session.StateRollingBatch; i++ {
		reload := config.DefaultConfig()
		reload.Oracle.Validate = i%2 == 1
		m, _ = update(t, m, configReloadMsg{cfg: reload})
		select {
		case msg := <-m.batchEvents:
			m, _ = update(t, m, msg)
		case <-deadline:
			t.Fatal("batch did not finish")
		}
	}

	assert.Equal(t, 20, m.sess.Len())
	assert.Empty(t, m.sess.Err())
	assert.Equal(t, m.cfg.Oracle.Validate, roller.Validating())
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Error(t, m.ctx.Err())
	assert.Empty(t, m.View())
}

func TestWindowResize(t *testing.T) {
	m := newTestModel(t, &fakeRoller{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.True(t, m.ready)
	assert.Equal(t, 120, m.viewport.Width)
	assert.Less(t, m.viewport.Height, 40)
}
