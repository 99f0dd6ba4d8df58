package models

import "time"

// PatternStats tracks live per-pattern trade counters.
type PatternStats struct {
	Trades int
	Wins   int
}

// Ledger is the running virtual account for one trading session.
// It is mutated only by applying settled trades; everything else reads it.
// Not safe for concurrent use; the session loop is single-threaded.
type Ledger struct {
	InitialBalance    float64
	Balance           float64
	TotalTrades       int
	Wins              int
	Losses            int
	TotalPnL          float64
	ConsecutiveLosses int
	PatternStats      map[Pattern]PatternStats
}

// NewLedger creates a fresh ledger with the given starting balance.
func NewLedger(initial float64) *Ledger {
	return &Ledger{
		InitialBalance: initial,
		Balance:        initial,
		PatternStats:   make(map[Pattern]PatternStats),
	}
}

// WinRate returns wins/trades as a fraction in [0, 1], 0 for an empty ledger.
func (l *Ledger) WinRate() float64 {
	if l.TotalTrades == 0 {
		return 0
	}
	return float64(l.Wins) / float64(l.TotalTrades)
}

// ROI returns total P&L relative to the initial balance, 0 when the
// initial balance is zero.
func (l *Ledger) ROI() float64 {
	if l.InitialBalance == 0 {
		return 0
	}
	return l.TotalPnL / l.InitialBalance
}

// Clone returns a deep copy. Snapshots must not alias the live pattern map.
func (l *Ledger) Clone() *Ledger {
	c := *l
	c.PatternStats = make(map[Pattern]PatternStats, len(l.PatternStats))
	for p, s := range l.PatternStats {
		c.PatternStats[p] = s
	}
	return &c
}

// Snapshot converts the ledger into a persisted checkpoint with the given
// sequence number and timestamp. The conversion is pure; sequencing and
// persistence are the checkpoint manager's concern.
func (l *Ledger) Snapshot(seq uint64, at time.Time) *Checkpoint {
	cp := &Checkpoint{
		Sequence:  seq,
		Timestamp: at,
		WinRate:   l.WinRate(),
		TotalPnL:  l.TotalPnL,
		Trades:    l.TotalTrades,
		Balance:   l.Balance,
		Patterns:  make(map[string]PatternSnapshot, len(l.PatternStats)),
	}
	for p, s := range l.PatternStats {
		rate := 0.0
		if s.Trades > 0 {
			rate = float64(s.Wins) / float64(s.Trades)
		}
		cp.Patterns[string(p)] = PatternSnapshot{Trades: s.Trades, WinRate: rate}
	}
	return cp
}

// LedgerFromCheckpoint reconstructs a ledger from a validated checkpoint.
// Wins and the initial balance are derived from the wire fields; the
// consecutive-loss counter is not part of the wire shape and starts at zero.
func LedgerFromCheckpoint(cp *Checkpoint) *Ledger {
	l := &Ledger{
		InitialBalance: cp.InitialBalance(),
		Balance:        cp.Balance,
		TotalTrades:    cp.Trades,
		Wins:           cp.Wins(),
		TotalPnL:       cp.TotalPnL,
		PatternStats:   make(map[Pattern]PatternStats, len(cp.Patterns)),
	}
	l.Losses = l.TotalTrades - l.Wins
	for name, s := range cp.Patterns {
		l.PatternStats[Pattern(name)] = PatternStats{
			Trades: s.Trades,
			Wins:   s.PatternWins(),
		}
	}
	return l
}
