package trading

import (
	"sync"
	"time"

	"grail-agent/internal/errors"
)

// BreakerState represents the state of the protective circuit breaker.
type BreakerState string

const (
	BreakerClosed BreakerState = "CLOSED" // normal trading
	BreakerOpen   BreakerState = "OPEN"   // cooling down after a loss streak
)

// Breaker pauses execution after a streak of consecutive losses and
// re-arms once the cooldown elapses. The drawdown check is separate and
// final: once the balance falls below the configured floor, trading halts
// for the rest of the run.
type Breaker struct {
	maxConsecutiveLosses int
	cooldown             time.Duration
	drawdownStopPercent  float64

	mu       sync.Mutex
	state    BreakerState
	losses   int
	openedAt time.Time
}

// NewBreaker creates a breaker that trips after maxConsecutiveLosses
// losses in a row and stays open for the cooldown period.
func NewBreaker(maxConsecutiveLosses int, cooldown time.Duration, drawdownStopPercent float64) *Breaker {
	return &Breaker{
		maxConsecutiveLosses: maxConsecutiveLosses,
		cooldown:             cooldown,
		drawdownStopPercent:  drawdownStopPercent,
		state:                BreakerClosed,
	}
}

// Allow reports whether execution may proceed. An open breaker whose
// cooldown has elapsed closes again with a fresh loss streak; one still
// cooling down returns ErrCircuitCooldown.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerClosed {
		return nil
	}

	elapsed := time.Since(b.openedAt)
	if elapsed >= b.cooldown {
		b.state = BreakerClosed
		b.losses = 0
		return nil
	}

	remaining := b.cooldown - elapsed
	return errors.Wrapf(errors.ErrCircuitCooldown, "%.0fs remaining", remaining.Seconds())
}

// Record feeds one settled trade outcome into the breaker. A win resets
// the streak; a loss extends it and trips the breaker at the limit.
func (b *Breaker) Record(win bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if win {
		b.losses = 0
		return
	}

	b.losses++
	if b.state == BreakerClosed && b.losses >= b.maxConsecutiveLosses {
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

// CheckDrawdown returns ErrTradingHalted when the balance has fallen
// below the drawdown floor relative to the initial bankroll.
func (b *Breaker) CheckDrawdown(balance, initialBalance float64) error {
	floor := initialBalance * b.drawdownStopPercent / 100
	if balance < floor {
		return errors.Wrapf(errors.ErrTradingHalted,
			"balance %.2f below %.0f%% of initial %.2f", balance, b.drawdownStopPercent, initialBalance)
	}
	return nil
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveLosses returns the current loss streak.
func (b *Breaker) ConsecutiveLosses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.losses
}
