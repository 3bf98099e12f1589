package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quantumdie/cmd/qdie/ui"
	"quantumdie/internal/dynamics"
	"quantumdie/internal/roll"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simRoll        int
	simOscillation bool
	simDecoherence float64
	simFrames      int
	simInterval    time.Duration
)

// simulateCmd animates a synthetic record without calling the service
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Print decay/oscillation frames for a collapsed face",
	Long: `Builds the ideal collapsed record for --roll and prints the amplitudes the
animation would show, one line per frame. No request is made.

Examples:
  qdie simulate --roll 3 --decoherence 0.5 --frames 20
  qdie simulate --roll 0 --oscillation --interval 100ms`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simRoll, "roll", 0, "Face value 0-7")
	simulateCmd.Flags().BoolVar(&simOscillation, "oscillation", false, "Enable the Hamiltonian oscillation model")
	simulateCmd.Flags().Float64Var(&simDecoherence, "decoherence", 0, "Decoherence rate 0-1")
	simulateCmd.Flags().IntVar(&simFrames, "frames", 10, "Number of frames to print")
	simulateCmd.Flags().DurationVar(&simInterval, "interval", dynamics.DefaultInterval, "Frame interval")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simRoll < 0 || simRoll >= roll.Faces {
		return fmt.Errorf("--roll must be in [0,%d], got %d", roll.Faces-1, simRoll)
	}
	if simDecoherence < 0 || simDecoherence > 1 {
		return fmt.Errorf("--decoherence must be in [0,1], got %v", simDecoherence)
	}
	if simFrames < 1 {
		return fmt.Errorf("--frames must be >= 1, got %d", simFrames)
	}

	params := dynamics.Params{Oscillation: simOscillation, Decoherence: simDecoherence}
	out := cmd.OutOrStdout()

	header := make([]string, roll.Faces)
	for i := range header {
		header[i] = fmt.Sprintf("%7s", roll.Bits(i))
	}
	fmt.Fprintf(out, "%9s %s\n", "t", strings.Join(header, ""))

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	a := dynamics.NewAnimator()
	a.Restart(roll.Collapsed(simRoll), params, time.Now())

	var last dynamics.Frame
	count := 0
	err := a.Run(ctx, simInterval, func(f dynamics.Frame) {
		cells := make([]string, len(f.Amplitudes))
		for i, p := range f.Amplitudes {
			cells[i] = fmt.Sprintf("%7.3f", p)
		}
		fmt.Fprintf(out, "%9s %s\n", f.Elapsed.Round(time.Millisecond), strings.Join(cells, ""))
		last = f
		count++
		if count >= simFrames {
			cancel()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Debug("simulation done", zap.Int("frames", count), zap.Bool("live", last.Live))

	if !last.Live {
		fmt.Fprintln(out, "static: no decoherence or oscillation, the record is shown as is")
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.StateVectorPanel(ui.DefaultStyles(), dynamics.Normalize(last.Amplitudes)))
	return nil
}
