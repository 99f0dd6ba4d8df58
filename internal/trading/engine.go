package trading

import (
	"context"
	"fmt"
	"time"

	"grail-agent/internal/models"
)

// Engine is the virtual P&L engine. It owns stake sizing and is the only
// component that mutates the ledger.
type Engine struct {
	ledger          *models.Ledger
	executor        Executor
	stakePercent    float64
	maxStakePercent float64
	runID           string
}

// NewEngine creates an engine over the given ledger and execution sink.
// Stake percentages are of the current balance, not the initial bankroll.
func NewEngine(ledger *models.Ledger, executor Executor, stakePercent, maxStakePercent float64, runID string) *Engine {
	return &Engine{
		ledger:          ledger,
		executor:        executor,
		stakePercent:    stakePercent,
		maxStakePercent: maxStakePercent,
		runID:           runID,
	}
}

// Ledger returns the live ledger.
func (e *Engine) Ledger() *models.Ledger {
	return e.ledger
}

// stake sizes the next trade: stake_percent of the current balance,
// capped at max_stake_percent of the current balance.
func (e *Engine) stake() float64 {
	stake := e.ledger.Balance * e.stakePercent / 100
	limit := e.ledger.Balance * e.maxStakePercent / 100
	if stake > limit {
		stake = limit
	}
	return stake
}

// Apply executes one approved signal and applies the settled outcome to
// the ledger as a single logical unit: everything is computed before any
// field is assigned, and an executor error leaves the ledger untouched.
func (e *Engine) Apply(ctx context.Context, sig models.Signal) (*models.Trade, error) {
	stake := e.stake()

	outcome, err := e.executor.Execute(ctx, sig, stake)
	if err != nil {
		return nil, err
	}

	newBalance := e.ledger.Balance + outcome.ProfitLoss
	result := models.ResultLoss
	if outcome.Win {
		result = models.ResultWin
	}
	stats := e.ledger.PatternStats[sig.Pattern]
	stats.Trades++
	if outcome.Win {
		stats.Wins++
	}

	now := time.Now()
	trade := &models.Trade{
		ID:           fmt.Sprintf("trade_%d_%d", e.ledger.TotalTrades+1, now.Unix()),
		RunID:        e.runID,
		Signal:       sig,
		Executed:     true,
		Result:       result,
		Stake:        stake,
		ProfitLoss:   outcome.ProfitLoss,
		BalanceAfter: newBalance,
		Timestamp:    now,
	}

	e.ledger.Balance = newBalance
	e.ledger.TotalPnL += outcome.ProfitLoss
	e.ledger.TotalTrades++
	if outcome.Win {
		e.ledger.Wins++
		e.ledger.ConsecutiveLosses = 0
	} else {
		e.ledger.Losses++
		e.ledger.ConsecutiveLosses++
	}
	e.ledger.PatternStats[sig.Pattern] = stats

	return trade, nil
}
