// Package session holds the in-memory state of one qdie session: the roll
// history, the surfaced error, the user's batch settings and a single-flight
// state machine that keeps at most one acquisition running.
package session

import (
	"errors"
	"sync"

	"quantumdie/internal/batch"
	"quantumdie/internal/logging"
	"quantumdie/internal/oracle"
	"quantumdie/internal/roll"

	"github.com/google/uuid"
)

// ErrBusy is returned when an operation needs an idle session.
var ErrBusy = errors.New("session busy: a roll is in progress")

// BatchPresets are the quick batch sizes offered to the user.
var BatchPresets = []int{10, 50, 100}

// State is the acquisition state.
type State int32

const (
	StateIdle State = iota
	StateRollingOne
	StateRollingBatch
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRollingOne:
		return "rolling"
	case StateRollingBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.RWMutex

	id    string
	state State
	token *batch.Token

	history []roll.Record
	errMsg  string

	useQEC       bool
	batchSize    int
	maxBatchSize int

	progress      int
	progressTotal int
}

// New creates an idle session. maxBatch <= 0 means no upper bound.
func New(batchSize, maxBatch int) *Session {
	s := &Session{
		id:           uuid.NewString(),
		maxBatchSize: maxBatch,
	}
	s.batchSize = s.clampBatch(batchSize)
	logging.Session("session %s created batch_size=%d", s.id, s.batchSize)
	return s
}

// ID identifies the session in logs and usage accounting.
func (s *Session) ID() string {
	return s.id
}

// State returns the current acquisition state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Busy reports whether a roll or batch is running.
func (s *Session) Busy() bool {
	return s.State() != StateIdle
}

// BeginSingle moves Idle to RollingOne and clears the surfaced error.
func (s *Session) BeginSingle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.state = StateRollingOne
	s.errMsg = ""
	return nil
}

// BeginBatch moves Idle to RollingBatch and returns the token that stops the
// new batch.
func (s *Session) BeginBatch() (*batch.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return nil, ErrBusy
	}
	s.state = StateRollingBatch
	s.token = batch.NewToken()
	s.errMsg = ""
	s.progress, s.progressTotal = 0, s.batchSize
	logging.Session("session %s: batch started size=%d", s.id, s.batchSize)
	return s.token, nil
}

// StopBatch stops the running batch, if any.
func (s *Session) StopBatch() {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token != nil {
		token.Stop()
		logging.Session("session %s: batch stop requested", s.id)
	}
}

// Finish returns the session to Idle from any state.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.token = nil
	s.progress, s.progressTotal = 0, 0
}

// Append adds a record to the history.
func (s *Session) Append(rec roll.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, rec)
}

// History returns a copy of the history in acquisition order.
func (s *Session) History() []roll.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]roll.Record, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of records.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Latest returns the most recent record.
func (s *Session) Latest() (roll.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return roll.Record{}, false
	}
	return s.history[len(s.history)-1], true
}

// Clear empties the history and the surfaced error. Refused while busy.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.history = nil
	s.errMsg = ""
	logging.Session("session %s: history cleared", s.id)
	return nil
}

// SetError surfaces err to the user; nil clears it.
func (s *Session) SetError(err error) {
	msg := oracle.Message(err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = msg
	if msg != "" {
		logging.SessionWarn("session %s: %s", s.id, msg)
	}
}

// Err returns the surfaced error message, "" when none.
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// UseQEC reports whether rolls request the error-correction block.
func (s *Session) UseQEC() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useQEC
}

// SetUseQEC toggles the error-correction request. Refused while busy.
func (s *Session) SetUseQEC(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.useQEC = v
	return nil
}

// BatchSize returns the configured batch size.
func (s *Session) BatchSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchSize
}

// SetBatchSize sets the batch size, clamped to at least 1 (and to the
// maximum when one is set). Refused while busy.
func (s *Session) SetBatchSize(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.batchSize = s.clampBatch(n)
	return nil
}

// AdjustBatchSize adds delta to the batch size.
func (s *Session) AdjustBatchSize(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ErrBusy
	}
	s.batchSize = s.clampBatch(s.batchSize + delta)
	return nil
}

func (s *Session) clampBatch(n int) int {
	if n < 1 {
		n = 1
	}
	if s.maxBatchSize > 0 && n > s.maxBatchSize {
		n = s.maxBatchSize
	}
	return n
}

// SetProgress records the batch iteration currently requested.
func (s *Session) SetProgress(i, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress, s.progressTotal = i, n
}

// Progress returns the current batch iteration and its total.
func (s *Session) Progress() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress, s.progressTotal
}
