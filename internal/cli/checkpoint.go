// Package cli provides the command-line interface for the trading agent.
package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"grail-agent/internal/checkpoint"
	"grail-agent/internal/models"
	"grail-agent/pkg/utils"
)

// addCheckpointCommands adds checkpoint inspection commands.
func addCheckpointCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and validate saved checkpoints",
		Long:  "List, show, and validate the ledger checkpoints written by trading runs.",
	}

	cmd.AddCommand(newCheckpointListCmd(app))
	cmd.AddCommand(newCheckpointShowCmd(app))
	cmd.AddCommand(newCheckpointLatestCmd(app))
	cmd.AddCommand(newCheckpointValidateCmd(app))

	rootCmd.AddCommand(cmd)
}

// openCheckpointStore builds the configured checkpoint store. The gateway
// is only required for the database-backed store.
func openCheckpointStore(app *App) (checkpoint.Store, error) {
	if app.Config.Checkpoint.Store == "database" && app.Gateway == nil {
		return nil, fmt.Errorf("checkpoint store is database-backed but the database is not initialized")
	}
	return checkpoint.NewStore(app.Config.Checkpoint, app.Gateway)
}

func newCheckpointListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cpStore, err := openCheckpointStore(app)
			if err != nil {
				output.Error("Failed to open checkpoint store: %v", err)
				return err
			}

			sequences, err := cpStore.List(ctx)
			if err != nil {
				output.Error("Failed to list checkpoints: %v", err)
				return err
			}

			if len(sequences) == 0 {
				output.Info("No checkpoints found")
				return nil
			}

			checkpoints := make([]*models.Checkpoint, 0, len(sequences))
			for _, seq := range sequences {
				cp, err := cpStore.Load(ctx, seq)
				if err != nil {
					output.Error("Failed to load checkpoint %d: %v", seq, err)
					return err
				}
				checkpoints = append(checkpoints, cp)
			}

			if output.IsJSON() {
				return output.JSON(checkpoints)
			}

			output.Bold("Saved Checkpoints")
			output.Println()

			table := NewTable(output, "Seq", "Timestamp", "Trades", "Win Rate", "Balance", "Total P&L")
			for _, cp := range checkpoints {
				table.AddRow(
					fmt.Sprintf("%d", cp.Sequence),
					FormatDateTime(cp.Timestamp),
					fmt.Sprintf("%d", cp.Trades),
					FormatWinRate(cp.WinRate),
					utils.FormatUSD(cp.Balance),
					output.FormatPnL(cp.TotalPnL),
				)
			}
			table.Render()

			output.Println()
			output.Dim("Use 'grail checkpoint show <seq>' for pattern details")

			return nil
		},
	}
}

func newCheckpointShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <sequence>",
		Short: "Show one checkpoint in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			seq, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				output.Error("Invalid sequence number: %s", args[0])
				return err
			}

			cpStore, err := openCheckpointStore(app)
			if err != nil {
				output.Error("Failed to open checkpoint store: %v", err)
				return err
			}

			cp, err := cpStore.Load(ctx, seq)
			if err != nil {
				output.Error("Failed to load checkpoint %d: %v", seq, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(cp)
			}

			printCheckpoint(output, cp)
			return nil
		},
	}
}

func newCheckpointLatestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cpStore, err := openCheckpointStore(app)
			if err != nil {
				output.Error("Failed to open checkpoint store: %v", err)
				return err
			}

			cp, err := cpStore.Latest(ctx)
			if err != nil {
				output.Error("Failed to load latest checkpoint: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(cp)
			}

			printCheckpoint(output, cp)
			return nil
		},
	}
}

func newCheckpointValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a checkpoint file",
		Long: `Validate a checkpoint JSON file.

The file is first checked against the wire format (all required fields
present, correct types), then against the ledger invariants and the local
checkpoint chain. A checkpoint that passes both checks is accepted by
'grail run --from-checkpoint'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			data, err := os.ReadFile(args[0])
			if err != nil {
				output.Error("Failed to read %s: %v", args[0], err)
				return err
			}

			cp, err := checkpoint.Decode(data)
			if err != nil {
				if output.IsJSON() {
					output.JSON(map[string]interface{}{"valid": false, "error": err.Error()})
				} else {
					output.Error("✗ Malformed checkpoint: %v", err)
				}
				return err
			}

			cpStore, err := openCheckpointStore(app)
			if err != nil {
				output.Error("Failed to open checkpoint store: %v", err)
				return err
			}
			manager, err := checkpoint.NewManager(ctx, cpStore)
			if err != nil {
				output.Error("Failed to initialize checkpoint manager: %v", err)
				return err
			}

			if !manager.Validate(cp) {
				if output.IsJSON() {
					output.JSON(map[string]interface{}{"valid": false, "sequence": cp.Sequence})
				} else {
					output.Error("✗ Checkpoint %d is well-formed but fails validation", cp.Sequence)
					output.Dim("Check the value ranges and the local chain (last sequence: %d)", manager.LastSequence())
				}
				return fmt.Errorf("checkpoint %d failed validation", cp.Sequence)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"valid": true, "sequence": cp.Sequence})
			}
			output.Success("✓ Checkpoint %d is valid", cp.Sequence)
			return nil
		},
	}
}

func printCheckpoint(output *Output, cp *models.Checkpoint) {
	output.Bold("Checkpoint %d", cp.Sequence)
	output.Println()

	output.Printf("  Timestamp:       %s\n", FormatDateTime(cp.Timestamp))
	output.Printf("  Trades:          %d\n", cp.Trades)
	output.Printf("  Wins:            %d\n", cp.Wins())
	output.Printf("  Win Rate:        %s\n", FormatWinRate(cp.WinRate))
	output.Printf("  Balance:         %s\n", utils.FormatUSD(cp.Balance))
	output.Printf("  Initial Balance: %s\n", utils.FormatUSD(cp.InitialBalance()))
	output.Printf("  Total P&L:       %s\n", output.FormatPnL(cp.TotalPnL))
	output.Println()

	if len(cp.Patterns) == 0 {
		output.Dim("No pattern statistics recorded")
		return
	}

	output.Bold("Pattern Statistics")
	names := make([]string, 0, len(cp.Patterns))
	for name := range cp.Patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	table := NewTable(output, "Pattern", "Trades", "Wins", "Win Rate")
	for _, name := range names {
		stat := cp.Patterns[name]
		table.AddRow(
			name,
			fmt.Sprintf("%d", stat.Trades),
			fmt.Sprintf("%d", stat.PatternWins()),
			FormatWinRate(stat.WinRate),
		)
	}
	table.Render()
}
