package main

import (
	"fmt"
	"path/filepath"

	"quantumdie/cmd/qdie/ui"
	"quantumdie/internal/config"
	"quantumdie/internal/usage"

	"github.com/spf13/cobra"
)

// usageCmd prints the persisted token usage
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show token usage of oracle calls",
	Args:  cobra.NoArgs,
	RunE:  showUsage,
}

func showUsage(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	tracker, err := usage.NewTracker(filepath.Join(ws, config.DirName))
	if err != nil {
		return err
	}
	defer tracker.Close()

	fmt.Fprintln(cmd.OutOrStdout(), ui.UsageReport(ui.DefaultStyles(), tracker.Stats()))
	return nil
}
