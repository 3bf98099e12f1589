package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	// Avoid background autosave during the test (debounce uses AfterFunc).
	tracker.dirty = true

	ctx := WithSession(context.Background(), "sess_1")
	tracker.Track(ctx, UsageEvent{Model: "gemini-2.5-flash", InputTokens: 10, OutputTokens: 5})
	tracker.Track(ctx, UsageEvent{Model: "gemini-2.5-flash", InputTokens: 2, OutputTokens: 3, OperationType: "roll_qec"})

	stats := tracker.Stats()
	if stats.TotalProject.Input != 12 || stats.TotalProject.Output != 8 || stats.TotalProject.Total != 20 {
		t.Fatalf("TotalProject=%+v, want input=12 output=8 total=20", stats.TotalProject)
	}
	if stats.Calls != 2 {
		t.Fatalf("Calls=%d, want 2", stats.Calls)
	}
	if got := stats.ByModel["gemini-2.5-flash"]; got.Total != 20 {
		t.Fatalf("ByModel=%+v, want total=20", got)
	}
	if got := stats.ByOperation["roll"]; got.Total != 15 {
		t.Fatalf("ByOperation[roll]=%+v, want total=15", got)
	}
	if got := stats.ByOperation["roll_qec"]; got.Total != 5 {
		t.Fatalf("ByOperation[roll_qec]=%+v, want total=5", got)
	}
	if got := stats.BySession["sess_1"]; got.Total != 20 {
		t.Fatalf("BySession[sess_1]=%+v, want total=20", got)
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var persisted UsageData
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal usage.json: %v", err)
	}
	if persisted.Aggregate.TotalProject.Total != 20 {
		t.Fatalf("persisted total=%d, want 20", persisted.Aggregate.TotalProject.Total)
	}

	reloaded, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker reload: %v", err)
	}
	if got := reloaded.Stats().Calls; got != 2 {
		t.Fatalf("reloaded Calls=%d, want 2", got)
	}
}

func TestTracker_CloseFlushesPending(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tracker.autoSaveDelay = time.Hour

	tracker.Track(context.Background(), UsageEvent{Model: "m", InputTokens: 1, OutputTokens: 1})
	if err := tracker.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("usage file not written on Close: %v", err)
	}
	if got := tracker.Stats().BySession["unknown"]; got.Total != 2 {
		t.Fatalf("BySession[unknown]=%+v, want total=2", got)
	}
}

func TestTracker_CorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	tracker, err := NewTracker(dir)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if tracker.Stats().ByModel == nil {
		t.Fatal("maps should be initialized")
	}
}

func TestTracker_ContextHelpers(t *testing.T) {
	tracker, err := NewTracker(t.TempDir())
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	ctx := NewContext(context.Background(), tracker)
	if got := FromContext(ctx); got != tracker {
		t.Fatalf("FromContext mismatch")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext on bare ctx = %v, want nil", got)
	}
	if got := SessionFromContext(WithSession(ctx, "abc")); got != "abc" {
		t.Fatalf("SessionFromContext=%q", got)
	}
}
