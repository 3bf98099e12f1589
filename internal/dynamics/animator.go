package dynamics

import (
	"context"
	"sync"
	"time"

	"quantumdie/internal/logging"
	"quantumdie/internal/roll"
)

// DefaultInterval is the frame interval used when none is configured.
const DefaultInterval = 16 * time.Millisecond

// Generation identifies one animation run. Frames for an older generation
// are discarded.
type Generation uint64

// Frame is one rendered step of the animation.
type Frame struct {
	Generation Generation
	Elapsed    time.Duration
	Amplitudes []float64
	// Live is false for static animations: nothing changes after this frame
	// and no further frame should be scheduled.
	Live bool
}

// Animator is a restartable timed task keyed by a generation counter. A new
// record or new params restart it at elapsed zero and invalidate every frame
// scheduled for the previous generation.
type Animator struct {
	mu     sync.Mutex
	gen    Generation
	rec    roll.Record
	params Params
	start  time.Time
	active bool
}

// NewAnimator returns a stopped animator.
func NewAnimator() *Animator {
	return &Animator{}
}

// Restart begins a new generation for rec and params at time now.
func (a *Animator) Restart(rec roll.Record, params Params, now time.Time) Generation {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.rec = rec
	a.params = params.Clamped()
	a.start = now
	a.active = true
	logging.DynamicsDebug("animator: generation %d roll=%d oscillation=%t decoherence=%.2f",
		a.gen, rec.Roll, a.params.Oscillation, a.params.Decoherence)
	return a.gen
}

// Stop invalidates the current generation.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.active = false
}

// Current returns the current generation.
func (a *Animator) Current() Generation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen
}

// Params returns the params of the current generation.
func (a *Animator) Params() Params {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.params
}

// Frame computes the frame for gen at time now. It returns false when gen is
// stale or the animator is stopped.
func (a *Animator) Frame(gen Generation, now time.Time) (Frame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active || gen != a.gen {
		return Frame{}, false
	}

	f := Frame{Generation: gen, Live: !a.params.Static()}
	if f.Live {
		f.Elapsed = now.Sub(a.start)
		if f.Elapsed < 0 {
			f.Elapsed = 0
		}
	}
	f.Amplitudes = Amplitudes(a.rec, a.params, f.Elapsed)
	return f, true
}

// Run drives the current generation with a ticker, handing every frame to
// sink. It returns when ctx is done, the generation is superseded, or right
// after the single frame of a static animation.
func (a *Animator) Run(ctx context.Context, interval time.Duration, sink func(Frame)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	gen := a.Current()

	frame, ok := a.Frame(gen, time.Now())
	if !ok {
		return nil
	}
	sink(frame)
	if !frame.Live {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			frame, ok := a.Frame(gen, now)
			if !ok {
				return nil
			}
			sink(frame)
		}
	}
}
