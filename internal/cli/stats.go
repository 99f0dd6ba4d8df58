// Package cli provides the command-line interface for the trading agent.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"grail-agent/internal/errors"
	"grail-agent/internal/store"
	"grail-agent/pkg/utils"
)

// addStatsCommands adds performance reporting commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	cmd := newStatsCmd(app)
	cmd.AddCommand(newStatsTradesCmd(app))
	rootCmd.AddCommand(cmd)
}

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-pattern performance",
		Long: `Show aggregate performance per signal pattern.

Statistics cover every executed trade in the database, across all runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Gateway == nil {
				output.Error("Database not initialized. Please check your configuration.")
				return errors.Wrap(errors.ErrConfigInvalid, "persistence gateway unavailable")
			}

			rows, err := utils.RetryWithResult(ctx, utils.DefaultRetryConfig(), func() ([]store.PatternPerformance, error) {
				return app.Gateway.PatternPerformance(ctx)
			})
			if err != nil {
				output.Error("Failed to load pattern performance: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}

			if len(rows) == 0 {
				output.Info("No executed trades yet")
				return nil
			}

			output.Bold("Pattern Performance")
			output.Println()

			table := NewTable(output, "Pattern", "Trades", "Wins", "Win Rate", "Total P&L", "Avg Conf")
			totalTrades := 0
			totalWins := 0
			totalPnL := 0.0
			for _, row := range rows {
				winRateStr := FormatWinRate(row.WinRate)
				if row.WinRate >= 0.6 {
					winRateStr = output.Green(winRateStr)
				} else if row.WinRate < 0.5 {
					winRateStr = output.Red(winRateStr)
				}

				table.AddRow(
					string(row.Pattern),
					fmt.Sprintf("%d", row.Trades),
					fmt.Sprintf("%d", row.Wins),
					winRateStr,
					output.FormatPnL(row.TotalPnL),
					FormatConfidence(row.AvgConfidence),
				)

				totalTrades += row.Trades
				totalWins += row.Wins
				totalPnL += row.TotalPnL
			}
			table.Render()

			output.Println()
			overall := 0.0
			if totalTrades > 0 {
				overall = float64(totalWins) / float64(totalTrades)
			}
			output.Printf("  Overall: %d trades, %s win rate, %s\n",
				totalTrades, FormatWinRate(overall), output.FormatPnL(totalPnL))

			return nil
		},
	}
}

func newStatsTradesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List recent trades",
		Example: `  grail stats trades
  grail stats trades --limit 20
  grail stats trades --asset BTC/USDT
  grail stats trades --result WIN
  grail stats trades --days 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Gateway == nil {
				output.Error("Database not initialized. Please check your configuration.")
				return errors.Wrap(errors.ErrConfigInvalid, "persistence gateway unavailable")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			asset, _ := cmd.Flags().GetString("asset")
			result, _ := cmd.Flags().GetString("result")
			runID, _ := cmd.Flags().GetString("run")
			days, _ := cmd.Flags().GetInt("days")

			filter := store.TradeFilter{
				Asset:  asset,
				RunID:  runID,
				Result: result,
				Limit:  limit,
			}
			if days > 0 {
				filter.Since = time.Now().UTC().AddDate(0, 0, -days)
			}

			trades, err := app.Gateway.Trades(ctx, filter)
			if err != nil {
				output.Error("Failed to load trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades found")
				return nil
			}

			output.Bold("Recent Trades")
			output.Println()

			table := NewTable(output, "ID", "Time", "Asset", "Direction", "Pattern", "Conf", "Stake", "Result", "P&L", "Balance")
			for _, trade := range trades {
				table.AddRow(
					TruncateString(trade.ID, 14),
					FormatTime(trade.Timestamp),
					trade.Signal.Asset,
					output.Direction(string(trade.Signal.Direction)),
					string(trade.Signal.Pattern),
					FormatConfidence(trade.Signal.Confidence),
					utils.FormatUSD(trade.Stake),
					output.Result(string(trade.Result)),
					output.FormatPnL(trade.ProfitLoss),
					utils.FormatUSD(trade.BalanceAfter),
				)
			}
			table.Render()

			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "maximum number of trades to show")
	cmd.Flags().String("asset", "", "filter by asset")
	cmd.Flags().String("result", "", "filter by result (WIN or LOSS)")
	cmd.Flags().String("run", "", "filter by run ID")
	cmd.Flags().Int("days", 0, "only trades from the last N days")

	return cmd
}
