package trading

import (
	"testing"
	"time"

	"grail-agent/internal/errors"
)

func TestBreakerTripsAfterLossStreak(t *testing.T) {
	b := NewBreaker(3, time.Minute, 50)

	if err := b.Allow(); err != nil {
		t.Fatalf("Fresh breaker must allow: %v", err)
	}

	b.Record(false)
	b.Record(false)
	if b.State() != BreakerClosed {
		t.Fatalf("Two losses: expected CLOSED, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("Two losses must still allow: %v", err)
	}

	b.Record(false)
	if b.State() != BreakerOpen {
		t.Fatalf("Three losses: expected OPEN, got %s", b.State())
	}
	err := b.Allow()
	if !errors.Is(err, errors.ErrCircuitCooldown) {
		t.Fatalf("Open breaker: expected ErrCircuitCooldown, got %v", err)
	}
}

func TestBreakerReArmsAfterCooldown(t *testing.T) {
	b := NewBreaker(3, 30*time.Millisecond, 50)

	for i := 0; i < 3; i++ {
		b.Record(false)
	}
	if !errors.Is(b.Allow(), errors.ErrCircuitCooldown) {
		t.Fatal("Breaker did not trip")
	}

	time.Sleep(40 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Elapsed cooldown must allow: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("Expected CLOSED after cooldown, got %s", b.State())
	}
	if b.ConsecutiveLosses() != 0 {
		t.Errorf("Expected loss streak reset, got %d", b.ConsecutiveLosses())
	}
}

func TestWinResetsLossStreak(t *testing.T) {
	b := NewBreaker(3, time.Minute, 50)

	b.Record(false)
	b.Record(false)
	b.Record(true)
	if b.ConsecutiveLosses() != 0 {
		t.Fatalf("Win did not reset streak: %d", b.ConsecutiveLosses())
	}

	b.Record(false)
	b.Record(false)
	if b.State() != BreakerClosed {
		t.Errorf("Streak restarted from zero must not trip at two: %s", b.State())
	}
}

func TestCheckDrawdown(t *testing.T) {
	b := NewBreaker(3, time.Minute, 50)

	if err := b.CheckDrawdown(100, 100); err != nil {
		t.Errorf("Full balance: %v", err)
	}
	// The floor itself is still tradeable; only falling below halts.
	if err := b.CheckDrawdown(50, 100); err != nil {
		t.Errorf("Balance at floor: %v", err)
	}
	err := b.CheckDrawdown(49.99, 100)
	if !errors.Is(err, errors.ErrTradingHalted) {
		t.Errorf("Balance below floor: expected ErrTradingHalted, got %v", err)
	}
}
