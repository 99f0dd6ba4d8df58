// Package cli provides the command-line interface for the trading agent.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"grail-agent/internal/checkpoint"
	"grail-agent/internal/config"
	"grail-agent/internal/errors"
	"grail-agent/internal/trading"
	"grail-agent/pkg/utils"
)

// addRunCommands adds the session run command.
func addRunCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newRunCmd(app))
}

func newRunCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one trading session",
		Long: `Execute one scheduled trading session.

The session restores the latest checkpoint (or starts a fresh ledger when
none exists), generates one batch of signals, executes the ones above the
confidence threshold, and writes a final checkpoint before exiting.

Interrupting the run with Ctrl-C stops it between prediction slots; the
state persisted so far stays intact.`,
		Example: `  grail run
  grail run --mode demo --bankroll 500 --predictions 10
  grail run --from-checkpoint 12
  grail run --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Gateway == nil {
				output.Error("Database not initialized. Please check your configuration.")
				return errors.Wrap(errors.ErrConfigInvalid, "persistence gateway unavailable")
			}

			if err := applyRunFlags(app.Config, cmd); err != nil {
				output.Error("Invalid run options: %v", err)
				return err
			}

			fromCheckpoint, _ := cmd.Flags().GetUint64("from-checkpoint")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cpStore, err := checkpoint.NewStore(app.Config.Checkpoint, app.Gateway)
			if err != nil {
				output.Error("Failed to open checkpoint store: %v", err)
				return err
			}
			manager, err := checkpoint.NewManager(ctx, cpStore)
			if err != nil {
				output.Error("Failed to initialize checkpoint manager: %v", err)
				return err
			}

			session := trading.NewSession(app.Config, manager, app.Gateway, app.Logger)

			if !output.IsJSON() {
				printRunHeader(output, app.Config, session.RunID())
			}

			summary, err := session.Run(ctx, trading.RunOptions{FromCheckpoint: fromCheckpoint})
			if err != nil {
				output.Error("Session failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}
			printSummary(output, summary)
			return nil
		},
	}

	cmd.Flags().String("mode", "", "trading mode: demo or live (default from config)")
	cmd.Flags().Float64("bankroll", 0, "starting virtual balance for a fresh ledger")
	cmd.Flags().Int("predictions", 0, "prediction slots for this run")
	cmd.Flags().Uint64("from-checkpoint", 0, "resume from a specific checkpoint sequence")
	cmd.Flags().Int64("seed", 0, "signal generator seed (0 seeds from the clock)")

	return cmd
}

// applyRunFlags folds run command flags into the loaded config. Flags the
// user did not set leave the config untouched. The merged config is
// validated before a single signal is generated.
func applyRunFlags(cfg *config.Config, cmd *cobra.Command) error {
	if cmd.Flags().Changed("mode") {
		mode, _ := cmd.Flags().GetString("mode")
		cfg.Trading.Mode = mode
	}
	if cmd.Flags().Changed("bankroll") {
		bankroll, _ := cmd.Flags().GetFloat64("bankroll")
		cfg.Trading.Bankroll = bankroll
	}
	if cmd.Flags().Changed("predictions") {
		predictions, _ := cmd.Flags().GetInt("predictions")
		cfg.Trading.Predictions = predictions
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		cfg.Signal.Seed = seed
	}
	return cfg.Validate()
}

func printRunHeader(output *Output, cfg *config.Config, runID string) {
	output.Bold("Starting Trading Session")
	output.Println()

	output.Printf("  Run ID:      %s\n", runID)
	output.Printf("  Mode:        %s\n", cfg.Trading.Mode)
	output.Printf("  Bankroll:    %s\n", utils.FormatUSD(cfg.Trading.Bankroll))
	output.Printf("  Predictions: %d\n", cfg.Trading.Predictions)
	output.Printf("  Threshold:   %.2f\n", cfg.Trading.ConfidenceThreshold)
	output.Println()

	if cfg.IsLiveMode() {
		output.Warning("⚡ LIVE MODE - no execution adapter is wired; predictions are recorded unsettled")
		output.Println()
	} else {
		output.Dim("Demo mode: trades settle against the virtual ledger")
		output.Println()
	}
}

func printSummary(output *Output, summary *trading.Summary) {
	content := []string{
		fmt.Sprintf("Mode:            %s", summary.Mode),
		fmt.Sprintf("Predictions:     %d", summary.Predictions),
		fmt.Sprintf("Executed:        %d", summary.Executed),
		fmt.Sprintf("Total Trades:    %d", summary.TotalTrades),
		fmt.Sprintf("Wins / Losses:   %d / %d", summary.Wins, summary.Losses),
		fmt.Sprintf("Win Rate:        %s", FormatWinRate(summary.WinRate)),
		fmt.Sprintf("Initial Balance: %s", utils.FormatUSD(summary.InitialBalance)),
		fmt.Sprintf("Final Balance:   %s", utils.FormatUSD(summary.FinalBalance)),
		fmt.Sprintf("Total P&L:       %s", output.FormatPnL(summary.TotalPnL)),
		fmt.Sprintf("ROI:             %s", output.FormatPercent(summary.ROI*100)),
	}

	output.Box("Session Summary", content)

	if summary.Halted {
		output.Println()
		output.Warning("⚠ Emergency stop: balance fell below the drawdown limit")
	}

	output.Println()
	output.Dim("Use 'grail stats' for per-pattern performance")
	output.Dim("Use 'grail checkpoint list' to inspect saved checkpoints")
}
