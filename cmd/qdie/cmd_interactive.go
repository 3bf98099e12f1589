package main

import (
	"context"
	"fmt"

	"quantumdie/cmd/qdie/tui"
	"quantumdie/internal/config"
	"quantumdie/internal/logging"
	"quantumdie/internal/session"
	"quantumdie/internal/usage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// commandContext returns the command's context, or Background when the
// command was invoked directly (tests).
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// runInteractive starts the TUI.
func runInteractive(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := session.New(a.cfg.Batch.DefaultSize, a.cfg.Batch.MaxSize)
	ctx = usage.WithSession(ctx, sess.ID())

	// Config changes on disk reach the model through reloads.
	reloads := make(chan *config.Config, 1)
	watcher, err := config.NewWatcher(a.cfgPath, func(cfg *config.Config) {
		logging.Reconfigure(cfg.Logging.Options())
		select {
		case reloads <- cfg:
		default:
			// Keep only the newest pending reload.
			select {
			case <-reloads:
			default:
			}
			reloads <- cfg
		}
	})
	if err != nil {
		logging.ConfigWarn("config watcher unavailable: %v", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logging.ConfigWarn("config watcher failed to start: %v", err)
		}
		defer watcher.Stop()
	}

	model := tui.New(ctx, tui.Deps{
		Config:  a.cfg,
		Session: sess,
		Roller:  a.roller,
		Reloads: reloads,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
