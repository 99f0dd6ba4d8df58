// Package trading implements the execution decision, the virtual P&L
// engine, the protective circuit breaker, and the session run loop.
package trading

import (
	"fmt"

	"grail-agent/internal/models"
)

// Decider validates whether a signal should be executed.
type Decider struct {
	threshold float64
}

// Decision contains the result of an execution check.
type Decision struct {
	Signal  models.Signal
	Execute bool
	Reason  string
}

// NewDecider creates a decider with the given confidence threshold.
func NewDecider(threshold float64) *Decider {
	return &Decider{threshold: threshold}
}

// Threshold returns the configured confidence threshold.
func (d *Decider) Threshold() float64 {
	return d.threshold
}

// Decide determines whether a signal should be executed. A signal is
// approved only when its confidence is strictly above the threshold and
// its direction is BUY or SELL. A confidence exactly at the threshold is
// rejected. The check is deterministic and keeps no state between calls.
func (d *Decider) Decide(sig models.Signal) Decision {
	if !sig.Direction.Actionable() {
		return Decision{
			Signal:  sig,
			Execute: false,
			Reason:  fmt.Sprintf("direction %s is not tradeable", sig.Direction),
		}
	}

	if sig.Confidence <= d.threshold {
		return Decision{
			Signal:  sig,
			Execute: false,
			Reason:  fmt.Sprintf("confidence %.4f at or below threshold %.2f", sig.Confidence, d.threshold),
		}
	}

	return Decision{
		Signal:  sig,
		Execute: true,
		Reason:  fmt.Sprintf("confidence %.4f above threshold %.2f", sig.Confidence, d.threshold),
	}
}
