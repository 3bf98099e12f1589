package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"quantumdie/cmd/qdie/ui"
	"quantumdie/internal/oracle"
	"quantumdie/internal/session"
	"quantumdie/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rollQEC  bool
	rollJSON bool
)

// rollCmd performs one measurement
var rollCmd = &cobra.Command{
	Use:   "roll",
	Short: "Roll the die once",
	Long: `Requests a single measurement from the generative service and prints it.

Examples:
  qdie roll
  qdie roll --qec --json`,
	Args: cobra.NoArgs,
	RunE: runRoll,
}

func init() {
	rollCmd.Flags().BoolVar(&rollQEC, "qec", false, "Request the error-correction block")
	rollCmd.Flags().BoolVar(&rollJSON, "json", false, "Print the raw record as JSON")
}

func runRoll(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := session.New(1, 1)
	ctx = usage.WithSession(ctx, sess.ID())

	rec, err := a.roller.RequestRoll(ctx, rollQEC)
	if err != nil {
		f := oracle.Classify(err)
		logger.Error("roll failed", zap.String("kind", f.Kind.String()), zap.Error(f.Err))
		return errors.New(f.Message())
	}
	logger.Info("roll complete", zap.Int("roll", rec.Roll), zap.Bool("qec", rec.QEC != nil))

	out := cmd.OutOrStdout()
	if rollJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	styles := ui.DefaultStyles()
	fmt.Fprintln(out, ui.FaceMap(styles, &rec, false, ""))
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.Details(styles, rec))
	if rec.QEC != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, ui.QECPanel(styles, rec.QEC))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.WaveFunction(styles, rec, 60))
	return nil
}
