package models

import "time"

// TradeResult represents the settled outcome of an executed trade.
type TradeResult string

const (
	ResultWin  TradeResult = "WIN"
	ResultLoss TradeResult = "LOSS"
)

// Trade represents the monetized outcome of an executed signal.
// A Trade is created only when the decider approves a signal and is
// immutable once recorded.
type Trade struct {
	ID           string
	RunID        string
	Signal       Signal
	Executed     bool
	Result       TradeResult
	Stake        float64
	ProfitLoss   float64
	BalanceAfter float64
	Timestamp    time.Time
}
