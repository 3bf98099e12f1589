// Package usage accounts for the tokens spent on oracle calls. Only token
// counts are persisted; roll history never leaves memory.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"quantumdie/internal/logging"
)

type contextKey struct{}

type sessionKey struct{}

// FileName is the usage summary file inside the workspace state dir.
const FileName = "usage.json"

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu            sync.Mutex
	data          UsageData
	filePath      string
	dirty         bool
	autoSaveDelay time.Duration
	autoSaveTimer *time.Timer
}

// NewTracker creates a tracker persisting to <stateDir>/usage.json.
func NewTracker(stateDir string) (*Tracker, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", stateDir, err)
	}

	t := &Tracker{
		filePath:      filepath.Join(stateDir, FileName),
		autoSaveDelay: 5 * time.Second,
		data: UsageData{
			Version:   "1.0",
			Aggregate: emptyAggregate(),
		},
	}

	if err := t.Load(); err != nil {
		logging.UsageWarn("usage file unreadable, starting fresh: %v", err)
	}

	return t, nil
}

func emptyAggregate() AggregatedStats {
	return AggregatedStats{
		ByModel:     make(map[string]TokenCounts),
		ByOperation: make(map[string]TokenCounts),
		BySession:   make(map[string]TokenCounts),
	}
}

// Path returns the file the tracker persists to.
func (t *Tracker) Path() string {
	return t.filePath
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded UsageData
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	t.data = loaded

	// Ensure maps are initialized if file was empty/partial
	if t.data.Aggregate.ByModel == nil {
		t.data.Aggregate.ByModel = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByOperation == nil {
		t.data.Aggregate.ByOperation = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.BySession == nil {
		t.data.Aggregate.BySession = make(map[string]TokenCounts)
	}

	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	t.data.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	t.dirty = false
	return os.WriteFile(t.filePath, data, 0644)
}

// Track records one oracle call. The session ID is taken from ctx when set
// with WithSession.
func (t *Tracker) Track(ctx context.Context, ev UsageEvent) {
	if ev.SessionID == "" {
		ev.SessionID = SessionFromContext(ctx)
	}
	if ev.OperationType == "" {
		ev.OperationType = "roll"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Calls++
	t.data.Aggregate.TotalProject.Add(ev.InputTokens, ev.OutputTokens)
	addToMap(t.data.Aggregate.ByModel, ev.Model, ev.InputTokens, ev.OutputTokens)
	addToMap(t.data.Aggregate.ByOperation, ev.OperationType, ev.InputTokens, ev.OutputTokens)
	addToMap(t.data.Aggregate.BySession, ev.SessionID, ev.InputTokens, ev.OutputTokens)

	// Debounced auto-save
	if !t.dirty {
		t.dirty = true
		t.autoSaveTimer = time.AfterFunc(t.autoSaveDelay, func() {
			if err := t.Save(); err != nil {
				logging.UsageWarn("usage auto-save failed: %v", err)
			}
		})
	}
}

// Close cancels a pending auto-save and flushes unsaved counters.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
		t.autoSaveTimer = nil
	}
	if !t.dirty {
		return nil
	}
	return t.saveLocked()
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByOperation = copyTokenCountsMap(stats.ByOperation)
	stats.BySession = copyTokenCountsMap(stats.BySession)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int) {
	entry := m[key]
	entry.Add(input, output)
	m[key] = entry
}

// Context Helpers

// NewContext returns a new context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext retrieves the tracker from the context.
func FromContext(ctx context.Context) *Tracker {
	val, _ := ctx.Value(contextKey{}).(*Tracker)
	return val
}

// WithSession tags usage recorded under ctx with a session ID.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the session ID set by WithSession, or "unknown".
func SessionFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey{}).(string); ok && id != "" {
		return id
	}
	return "unknown"
}
