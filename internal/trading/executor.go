package trading

import (
	"context"

	"grail-agent/internal/errors"
	"grail-agent/internal/models"
)

// Executor is the sink an approved signal is executed against.
type Executor interface {
	Execute(ctx context.Context, sig models.Signal, stake float64) (Outcome, error)
	Mode() models.Mode
}

// VirtualExecutor settles trades against the configured payoff rule
// without touching any external system. It never fails.
type VirtualExecutor struct {
	payoff Payoff
}

// NewVirtualExecutor creates a virtual executor over the given payoff rule.
func NewVirtualExecutor(payoff Payoff) *VirtualExecutor {
	return &VirtualExecutor{payoff: payoff}
}

// Mode returns the demo trading mode.
func (e *VirtualExecutor) Mode() models.Mode {
	return models.ModeDemo
}

// Execute settles the signal virtually.
func (e *VirtualExecutor) Execute(_ context.Context, sig models.Signal, stake float64) (Outcome, error) {
	return e.payoff.Settle(sig, stake), nil
}

// LiveExecutor is the declared real-order sink. Order placement is not
// implemented: every call returns ErrLiveNotImplemented, so a live-mode
// run records its predictions but settles nothing.
type LiveExecutor struct{}

// NewLiveExecutor creates the live executor.
func NewLiveExecutor() *LiveExecutor {
	return &LiveExecutor{}
}

// Mode returns the live trading mode.
func (e *LiveExecutor) Mode() models.Mode {
	return models.ModeLive
}

// Execute always refuses.
func (e *LiveExecutor) Execute(context.Context, models.Signal, float64) (Outcome, error) {
	return Outcome{}, errors.ErrLiveNotImplemented
}
