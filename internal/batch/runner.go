// Package batch runs a sequence of single roll requests with a fixed pause
// between them, stopping at the first failure or when its token is stopped.
package batch

import (
	"context"
	"errors"
	"time"

	"quantumdie/internal/logging"
	"quantumdie/internal/oracle"
	"quantumdie/internal/roll"

	"github.com/google/uuid"
)

// DefaultDelay is the pause between consecutive requests.
const DefaultDelay = time.Second

// Roller performs one roll request. *oracle.Roller satisfies it.
type Roller interface {
	RequestRoll(ctx context.Context, useQEC bool) (roll.Record, error)
}

// Observer receives batch events. Calls happen on the goroutine running the
// batch, in iteration order.
type Observer interface {
	OnProgress(i, count int)
	OnRecord(i int, rec roll.Record)
	OnError(i int, err error)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	Progress func(i, count int)
	Record   func(i int, rec roll.Record)
	Error    func(i int, err error)
}

func (o ObserverFuncs) OnProgress(i, count int) {
	if o.Progress != nil {
		o.Progress(i, count)
	}
}

func (o ObserverFuncs) OnRecord(i int, rec roll.Record) {
	if o.Record != nil {
		o.Record(i, rec)
	}
}

func (o ObserverFuncs) OnError(i int, err error) {
	if o.Error != nil {
		o.Error(i, err)
	}
}

// Options configures a Runner.
type Options struct {
	UseQEC bool
	Delay  time.Duration // 0 uses DefaultDelay, negative disables the pause
}

// Result summarises a finished batch.
type Result struct {
	RunID     string
	Requested int
	Completed int
	Err       error // *oracle.Failure of the failing call
	Cancelled bool
}

// Runner executes batches sequentially.
type Runner struct {
	roller Roller
	useQEC bool
	delay  time.Duration
}

// NewRunner creates a runner.
func NewRunner(roller Roller, opts Options) *Runner {
	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &Runner{roller: roller, useQEC: opts.UseQEC, delay: delay}
}

// Delay returns the pause between requests.
func (r *Runner) Delay() time.Duration {
	return r.delay
}

// Run performs up to count requests. Iteration i is skipped, along with every
// later one, once the token is stopped or ctx is done. On the first failure
// the token is stopped and the classified error is returned in Result.Err.
// No pause follows the last request.
func (r *Runner) Run(ctx context.Context, count int, token *Token, obs Observer) Result {
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if token == nil {
		token = NewToken()
	}

	res := Result{RunID: uuid.NewString(), Requested: count}
	logging.Batch("batch %s: starting count=%d qec=%t delay=%v", res.RunID, count, r.useQEC, r.delay)

	for i := 1; i <= count; i++ {
		if token.Stopped() || ctx.Err() != nil {
			res.Cancelled = true
			logging.Batch("batch %s: stopped before iteration %d", res.RunID, i)
			break
		}

		obs.OnProgress(i, count)
		rec, err := r.roller.RequestRoll(ctx, r.useQEC)
		if err != nil {
			token.Stop()
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				res.Cancelled = true
				break
			}
			f := oracle.Classify(err)
			res.Err = f
			logging.Batch("batch %s: iteration %d failed kind=%s", res.RunID, i, f.Kind)
			obs.OnError(i, f)
			break
		}

		res.Completed++
		logging.BatchDebug("batch %s: iteration %d/%d roll=%d", res.RunID, i, count, rec.Roll)
		obs.OnRecord(i, rec)

		if i < count && !r.wait(ctx, token) {
			res.Cancelled = true
			logging.Batch("batch %s: stopped during pause after iteration %d", res.RunID, i)
			break
		}
	}

	logging.Get(logging.CategoryBatch).StructuredLog("info", "batch finished", map[string]interface{}{
		"run_id":    res.RunID,
		"requested": count,
		"completed": res.Completed,
		"cancelled": res.Cancelled,
		"failed":    res.Err != nil,
	})
	return res
}

// wait pauses for the configured delay and reports false when interrupted.
func (r *Runner) wait(ctx context.Context, token *Token) bool {
	if r.delay <= 0 {
		return !token.Stopped() && ctx.Err() == nil
	}
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-token.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
