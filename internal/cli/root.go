// Package cli provides the command-line interface for the trading agent.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"grail-agent/internal/config"
	"grail-agent/internal/logging"
	"grail-agent/internal/store"
	"grail-agent/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2025-06-01"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Gateway store.Gateway
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Open the persistence gateway up front. Commands that need it check
	// for nil; a broken database should not block `version` or `config`.
	gateway, err := store.Open(cfg.Database)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to open persistence gateway, some commands will be unavailable")
	} else {
		app.Gateway = gateway
		logger.Debug().Str("backend", cfg.Database.Backend).Msg("Persistence gateway opened")
	}

	rootCmd := &cobra.Command{
		Use:   "grail",
		Short: "Grail Agent - simulated prediction trading CLI",
		Long: `Grail Agent is a checkpoint-driven prediction trading agent.

Each run generates synthetic trading signals, executes the confident ones
against a virtual ledger, and persists every prediction, trade, and ledger
checkpoint. A later run resumes exactly where the last one stopped.

Use 'grail help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/grail-agent)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addRunCommands(rootCmd, app)
	addCheckpointCommands(rootCmd, app)
	addStatsCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Grail Agent v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a starting config.toml",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configDir, _ := cmd.Flags().GetString("config")
			path, err := config.CreateTemplate(configDir)
			if err != nil {
				output.Error("Failed to create config template: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": path})
			}
			output.Success("✓ Config template written to %s", path)
			output.Dim("Edit this file to change settings.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Trading Configuration")
	output.Printf("  Mode:            %s\n", cfg.Trading.Mode)
	output.Printf("  Bankroll:        %s\n", utils.FormatUSD(cfg.Trading.Bankroll))
	output.Printf("  Predictions:     %d\n", cfg.Trading.Predictions)
	output.Printf("  Threshold:       %.2f\n", cfg.Trading.ConfidenceThreshold)
	output.Println()

	output.Bold("Signal Configuration")
	output.Printf("  Assets:          %d configured\n", len(cfg.Signal.Assets))
	for _, asset := range cfg.Signal.Assets {
		output.Printf("    • %s\n", asset)
	}
	if cfg.Signal.Seed != 0 {
		output.Printf("  Seed:            %d\n", cfg.Signal.Seed)
	} else {
		output.Printf("  Seed:            from clock\n")
	}
	output.Println()

	output.Bold("Payoff Configuration")
	output.Printf("  Rule:            %s\n", cfg.Payoff.Rule)
	if cfg.Payoff.Rule == "fixed" {
		output.Printf("  Win Cutoff:      %.2f\n", cfg.Payoff.WinCutoff)
		output.Printf("  Win Percent:     %.1f%%\n", cfg.Payoff.WinPercent)
		output.Printf("  Loss Percent:    %.1f%%\n", cfg.Payoff.LossPercent)
	}
	output.Println()

	output.Bold("Risk Configuration")
	output.Printf("  Stake %%:         %.1f%%\n", cfg.Risk.StakePercent)
	output.Printf("  Max Stake %%:     %.1f%%\n", cfg.Risk.MaxStakePercent)
	output.Printf("  Max Consec Loss: %d\n", cfg.Risk.MaxConsecutiveLosses)
	output.Printf("  Cooldown:        %s\n", cfg.Risk.Cooldown)
	output.Printf("  Drawdown Stop:   %.1f%%\n", cfg.Risk.DrawdownStopPercent)
	output.Println()

	output.Bold("Checkpoint Configuration")
	output.Printf("  Store:           %s\n", cfg.Checkpoint.Store)
	output.Printf("  Directory:       %s\n", cfg.Checkpoint.Dir)
	output.Printf("  Interval:        every %d trades\n", cfg.Checkpoint.Interval)
	output.Println()

	output.Bold("Database Configuration")
	output.Printf("  Backend:         %s\n", cfg.Database.Backend)
	if cfg.Database.Backend == "sqlite" {
		output.Printf("  Path:            %s\n", cfg.Database.Path)
	} else {
		output.Printf("  DSN:             configured\n")
	}

	return nil
}
