package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"quantumdie/internal/config"
	"quantumdie/internal/logging"
	"quantumdie/internal/oracle"
	"quantumdie/internal/telemetry"
	"quantumdie/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string

	// Logger
	logger *zap.Logger
)

// newCollaborator builds the generative service client. Replaced in tests.
var newCollaborator = func(cfg config.OracleConfig) oracle.Collaborator {
	return oracle.NewGeminiCollaborator(cfg)
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "qdie",
	Short: "qdie - quantum die roll visualizer",
	Long: `qdie rolls an eight-faced "quantum" die.

Every measurement comes from a generative language service; qdie validates
the record, keeps the session history and visualises it: the collapsed wave
function, the entangled opposite face, optional error correction over three
physical registers, and a decay/oscillation animation of the amplitudes.

Run without arguments to start the interactive interface.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip logger init for interactive mode (it has its own UI)
		if cmd.Use == "qdie" && cmd.CalledAs() == "qdie" {
			logger = zap.NewNop()
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	rootCmd.AddCommand(rollCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the --workspace flag or the working directory.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		return filepath.Abs(workspace)
	}
	return os.Getwd()
}

// app holds the wired runtime shared by every command.
type app struct {
	workspace string
	cfgPath   string
	cfg       *config.Config
	tracker   *usage.Tracker
	roller    *oracle.Roller
	shutdown  func(context.Context) error
}

// bootstrap loads the config and wires logging, tracing, usage accounting
// and the roller.
func bootstrap(ctx context.Context) (*app, error) {
	ws, err := resolveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}

	path := config.Path(ws)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.DebugMode = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := logging.Initialize(ws, cfg.Logging.Options()); err != nil {
		return nil, err
	}
	logging.Boot("qdie starting: model=%s validate=%t", cfg.Oracle.Model, cfg.Oracle.Validate)

	shutdown, err := telemetry.Setup(ctx, "qdie", telemetry.Options{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
	})
	if err != nil {
		logging.BootWarn("telemetry disabled: %v", err)
		logger.Warn("telemetry disabled", zap.Error(err))
	}

	tracker, err := usage.NewTracker(filepath.Join(ws, config.DirName))
	if err != nil {
		return nil, err
	}

	roller := oracle.NewRoller(newCollaborator(cfg.Oracle), cfg.Oracle.Validate)
	roller.SetTracker(tracker)

	logger.Debug("bootstrap complete",
		zap.String("workspace", ws),
		zap.String("model", cfg.Oracle.Model),
	)

	return &app{
		workspace: ws,
		cfgPath:   path,
		cfg:       cfg,
		tracker:   tracker,
		roller:    roller,
		shutdown:  shutdown,
	}, nil
}

// Close flushes usage and spans and closes the log files.
func (a *app) Close() {
	if err := a.tracker.Close(); err != nil {
		logger.Warn("failed to save usage", zap.Error(err))
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.shutdown(ctx)
	}
	logging.CloseAll()
}
