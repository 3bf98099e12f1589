package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantumdie/cmd/qdie/ui"
	"quantumdie/internal/batch"
	"quantumdie/internal/oracle"
	"quantumdie/internal/roll"
	"quantumdie/internal/session"
	"quantumdie/internal/stats"
	"quantumdie/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	batchCount int
	batchQEC   bool
	batchDelay time.Duration
)

// batchCmd runs the sequential batch loop headless
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Roll the die repeatedly and summarise the results",
	Long: `Requests up to N measurements one after another with a pause between
requests. The batch stops at the first failure; Ctrl+C stops it at the next
iteration boundary. Progress goes to stderr, records to stdout.

Examples:
  qdie batch -n 50
  qdie batch -n 10 --qec --delay 2s`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchCount, "count", "n", 0, "Number of rolls (default: batch.default_size)")
	batchCmd.Flags().BoolVar(&batchQEC, "qec", false, "Request the error-correction block")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 0, "Pause between requests (default: batch.delay, 0 disables)")
}

type batchEvent struct {
	i, n int
	rec  *roll.Record
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := session.New(a.cfg.Batch.DefaultSize, a.cfg.Batch.MaxSize)
	if batchCount > 0 {
		if err := sess.SetBatchSize(batchCount); err != nil {
			return err
		}
	}
	if err := sess.SetUseQEC(batchQEC); err != nil {
		return err
	}
	ctx = usage.WithSession(ctx, sess.ID())

	delay := a.cfg.GetBatchDelay()
	if cmd.Flags().Changed("delay") {
		delay = batchDelay
	}
	if delay <= 0 {
		delay = -1 // no pause
	}

	token, err := sess.BeginBatch()
	if err != nil {
		return err
	}
	defer sess.Finish()

	n := sess.BatchSize()
	runner := batch.NewRunner(a.roller, batch.Options{UseQEC: batchQEC, Delay: delay})
	logger.Info("batch starting", zap.Int("count", n), zap.Bool("qec", batchQEC), zap.Duration("delay", runner.Delay()))

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	events := make(chan batchEvent, 8)
	done := make(chan struct{})
	var res batch.Result

	g, gctx := errgroup.WithContext(ctx)

	// Runner
	g.Go(func() error {
		defer close(done)
		defer close(events)
		res = runner.Run(gctx, n, token, batch.ObserverFuncs{
			Progress: func(i, count int) { events <- batchEvent{i: i, n: count} },
			Record: func(i int, rec roll.Record) {
				events <- batchEvent{i: i, n: n, rec: &rec}
			},
		})
		return nil
	})

	// Renderer
	g.Go(func() error {
		for ev := range events {
			if ev.rec == nil {
				sess.SetProgress(ev.i, ev.n)
				fmt.Fprintf(errOut, "\rrolling %d/%d…", ev.i, ev.n)
				continue
			}
			sess.Append(*ev.rec)
			fmt.Fprintf(out, "%4d  roll=%d face_down=%d %s\n", ev.i, ev.rec.Roll, ev.rec.FaceDown, roll.QubitLabel(ev.rec.Roll))
		}
		fmt.Fprintln(errOut)
		return nil
	})

	// Interrupts stop the token; the in-flight request completes.
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			logger.Info("interrupt received, stopping batch")
			sess.StopBatch()
		case <-done:
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	summary := stats.Compute(sess.History())
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.StatsPanel(ui.DefaultStyles(), summary, 60))

	switch {
	case res.Err != nil:
		logger.Warn("batch failed", zap.Int("completed", res.Completed), zap.Error(res.Err))
		return errors.New(oracle.Message(res.Err))
	case res.Cancelled:
		fmt.Fprintf(out, "stopped after %d of %d rolls\n", res.Completed, res.Requested)
	}
	logger.Info("batch complete", zap.String("run_id", res.RunID), zap.Int("completed", res.Completed))
	return nil
}
