package trading

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"grail-agent/internal/config"
	"grail-agent/internal/models"
	"grail-agent/internal/signal"
)

// Feature: grail-agent, Property 4: Ledger invariants hold after any trade sequence
//
// Property: For any seed, bankroll, and number of applied trades, the
// ledger always satisfies wins + losses = total trades, wins <= total
// trades, balance = initial + total pnl (within float tolerance), the
// per-pattern trade counts sum to the total, and no pattern records more
// wins than trades.
func TestProperty_LedgerInvariantsHoldAfterAnyTradeSequence(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Ledger invariants after applied trades", prop.ForAll(
		func(seed int64, bankroll float64, count int) bool {
			ctx := context.Background()
			sigGen := signal.NewGenerator(config.DefaultAssets(), seed)
			payoff := NewOddsPayoff(seed + 1)
			ledger := models.NewLedger(bankroll)
			engine := NewEngine(ledger, NewVirtualExecutor(payoff), 2, 10, "run-property")

			for i := 0; i < count; i++ {
				sig, err := sigGen.Generate()
				if err != nil {
					t.Logf("Generate failed: %v", err)
					return false
				}
				if _, err := engine.Apply(ctx, sig); err != nil {
					t.Logf("Apply failed: %v", err)
					return false
				}

				if ledger.Wins+ledger.Losses != ledger.TotalTrades {
					t.Logf("wins %d + losses %d != trades %d", ledger.Wins, ledger.Losses, ledger.TotalTrades)
					return false
				}
				if ledger.Wins > ledger.TotalTrades {
					t.Logf("wins %d > trades %d", ledger.Wins, ledger.TotalTrades)
					return false
				}
				if math.Abs(ledger.Balance-(ledger.InitialBalance+ledger.TotalPnL)) > 1e-9 {
					t.Logf("balance %.12f != initial %.2f + pnl %.12f",
						ledger.Balance, ledger.InitialBalance, ledger.TotalPnL)
					return false
				}
				if ledger.Balance <= 0 {
					t.Logf("balance went non-positive: %.12f", ledger.Balance)
					return false
				}

				patternTrades, patternWins := 0, 0
				for pattern, stats := range ledger.PatternStats {
					if stats.Wins > stats.Trades {
						t.Logf("pattern %s: wins %d > trades %d", pattern, stats.Wins, stats.Trades)
						return false
					}
					patternTrades += stats.Trades
					patternWins += stats.Wins
				}
				if patternTrades != ledger.TotalTrades || patternWins != ledger.Wins {
					t.Logf("pattern totals %d/%d != ledger totals %d/%d",
						patternTrades, patternWins, ledger.TotalTrades, ledger.Wins)
					return false
				}

				rate := ledger.WinRate()
				if rate < 0 || rate > 1 {
					t.Logf("win rate out of range: %f", rate)
					return false
				}
			}
			return true
		},
		gen.Int64Range(1, 1<<62),
		gen.Float64Range(100, 100000),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}
