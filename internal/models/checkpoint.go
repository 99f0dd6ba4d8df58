package models

import (
	"math"
	"time"
)

// PatternSnapshot is the per-pattern slice of a checkpoint.
type PatternSnapshot struct {
	Trades  int     `json:"trades"`
	WinRate float64 `json:"win_rate"`
}

// Checkpoint is an immutable, sequenced snapshot of the ledger.
//
// The JSON field names and types below are the persisted checkpoint format.
// External tooling (the checkpoint validator) depends on this exact shape,
// so the tags must not change. win_rate is a fraction in [0, 1], not a
// percentage. Timestamps marshal as RFC 3339 (ISO-8601).
type Checkpoint struct {
	Sequence  uint64                     `json:"checkpoint"`
	Timestamp time.Time                  `json:"timestamp"`
	WinRate   float64                    `json:"win_rate"`
	TotalPnL  float64                    `json:"total_pnl"`
	Trades    int                        `json:"trades"`
	Balance   float64                    `json:"balance"`
	Patterns  map[string]PatternSnapshot `json:"patterns"`
}

// Wins derives the win count from the stored win rate. Exact for any
// realistic trade count (win_rate carries a full float64 mantissa).
func (c *Checkpoint) Wins() int {
	return int(math.Round(c.WinRate * float64(c.Trades)))
}

// InitialBalance derives the starting balance from the ledger invariant
// balance = initial + total_pnl.
func (c *Checkpoint) InitialBalance() float64 {
	return c.Balance - c.TotalPnL
}

// PatternWins derives the win count for one pattern slice.
func (s PatternSnapshot) PatternWins() int {
	return int(math.Round(s.WinRate * float64(s.Trades)))
}
