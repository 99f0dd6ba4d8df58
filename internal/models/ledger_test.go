package models

import (
	"math"
	"testing"
	"time"
)

func TestNewLedger(t *testing.T) {
	l := NewLedger(1000)

	if l.Balance != 1000 {
		t.Errorf("Expected balance 1000, got %f", l.Balance)
	}
	if l.InitialBalance != 1000 {
		t.Errorf("Expected initial balance 1000, got %f", l.InitialBalance)
	}
	if l.TotalTrades != 0 || l.Wins != 0 || l.Losses != 0 {
		t.Error("Fresh ledger should have zero trade counters")
	}
	if l.WinRate() != 0 {
		t.Errorf("Empty ledger win rate should be 0, got %f", l.WinRate())
	}
	if l.ROI() != 0 {
		t.Errorf("Empty ledger ROI should be 0, got %f", l.ROI())
	}
}

func TestLedgerWinRate(t *testing.T) {
	l := NewLedger(1000)
	l.TotalTrades = 4
	l.Wins = 3
	l.Losses = 1

	if got := l.WinRate(); got != 0.75 {
		t.Errorf("Expected win rate 0.75, got %f", got)
	}
}

func TestLedgerROIZeroInitial(t *testing.T) {
	l := &Ledger{TotalPnL: 42}
	if got := l.ROI(); got != 0 {
		t.Errorf("ROI with zero initial balance should be 0, got %f", got)
	}
}

func TestLedgerCloneIndependence(t *testing.T) {
	l := NewLedger(500)
	l.TotalTrades = 2
	l.Wins = 1
	l.Losses = 1
	l.PatternStats[PatternClassic] = PatternStats{Trades: 2, Wins: 1}

	c := l.Clone()
	c.Balance = 999
	c.PatternStats[PatternClassic] = PatternStats{Trades: 5, Wins: 5}
	c.PatternStats[PatternVolEvent] = PatternStats{Trades: 1, Wins: 0}

	if l.Balance != 500 {
		t.Errorf("Clone mutation leaked into original balance: %f", l.Balance)
	}
	if s := l.PatternStats[PatternClassic]; s.Trades != 2 || s.Wins != 1 {
		t.Errorf("Clone mutation leaked into original pattern stats: %+v", s)
	}
	if _, ok := l.PatternStats[PatternVolEvent]; ok {
		t.Error("Clone map addition leaked into original")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l := NewLedger(1000)
	l.Balance = 1037.5
	l.TotalTrades = 10
	l.Wins = 6
	l.Losses = 4
	l.TotalPnL = 37.5
	l.ConsecutiveLosses = 2
	l.PatternStats[PatternClassic] = PatternStats{Trades: 4, Wins: 3}
	l.PatternStats[PatternNewsEvent] = PatternStats{Trades: 6, Wins: 3}

	cp := l.Snapshot(7, time.Now())
	if cp.Sequence != 7 {
		t.Errorf("Expected sequence 7, got %d", cp.Sequence)
	}
	if cp.WinRate != 0.6 {
		t.Errorf("Expected win_rate 0.6, got %f", cp.WinRate)
	}

	restored := LedgerFromCheckpoint(cp)

	if restored.Balance != l.Balance {
		t.Errorf("Balance mismatch: want %f, got %f", l.Balance, restored.Balance)
	}
	if math.Abs(restored.InitialBalance-l.InitialBalance) > 1e-9 {
		t.Errorf("Initial balance mismatch: want %f, got %f", l.InitialBalance, restored.InitialBalance)
	}
	if restored.TotalTrades != l.TotalTrades {
		t.Errorf("Trade count mismatch: want %d, got %d", l.TotalTrades, restored.TotalTrades)
	}
	if restored.Wins != l.Wins || restored.Losses != l.Losses {
		t.Errorf("Win/loss mismatch: want %d/%d, got %d/%d", l.Wins, l.Losses, restored.Wins, restored.Losses)
	}
	if restored.ConsecutiveLosses != 0 {
		t.Errorf("Consecutive losses should reset on restore, got %d", restored.ConsecutiveLosses)
	}
	for p, want := range l.PatternStats {
		got, ok := restored.PatternStats[p]
		if !ok {
			t.Errorf("Pattern %s missing after round trip", p)
			continue
		}
		if got != want {
			t.Errorf("Pattern %s mismatch: want %+v, got %+v", p, want, got)
		}
	}
}

func TestCheckpointDerivedFields(t *testing.T) {
	cp := &Checkpoint{
		Sequence: 1,
		WinRate:  0.6,
		TotalPnL: -12.5,
		Trades:   5,
		Balance:  987.5,
	}

	if got := cp.Wins(); got != 3 {
		t.Errorf("Expected 3 wins from win_rate 0.6 over 5 trades, got %d", got)
	}
	if got := cp.InitialBalance(); math.Abs(got-1000) > 1e-9 {
		t.Errorf("Expected initial balance 1000, got %f", got)
	}
}
