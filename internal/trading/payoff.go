package trading

import (
	"math/rand"
	"time"

	"grail-agent/internal/config"
	"grail-agent/internal/models"
)

// Outcome is the settled result of a virtual execution.
type Outcome struct {
	Win        bool
	ProfitLoss float64
}

// Payoff settles an approved signal into a win or loss. Implementations
// are deterministic given (signal, stake, seed).
type Payoff interface {
	Settle(sig models.Signal, stake float64) Outcome
	Name() string
}

// OddsPayoff is the stochastic settlement rule: a seeded draw under the
// signal confidence wins stake x (odds - 1), anything else loses the
// stake. Higher confidence means a higher chance of winning, so the rule
// rewards the decider for being selective.
type OddsPayoff struct {
	rng *rand.Rand
}

// NewOddsPayoff creates the odds rule. A seed of 0 seeds from the clock;
// any other seed makes every settlement sequence reproducible.
func NewOddsPayoff(seed int64) *OddsPayoff {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &OddsPayoff{rng: rand.New(rand.NewSource(seed))}
}

func (p *OddsPayoff) Name() string { return "odds" }

func (p *OddsPayoff) Settle(sig models.Signal, stake float64) Outcome {
	if p.rng.Float64() < sig.Confidence {
		return Outcome{Win: true, ProfitLoss: stake * (sig.Odds - 1)}
	}
	return Outcome{Win: false, ProfitLoss: -stake}
}

// FixedPayoff is the deterministic settlement rule: a signal at or above
// the cutoff wins a fixed percentage of the stake, anything below loses a
// fixed percentage of the stake.
type FixedPayoff struct {
	Cutoff      float64
	WinPercent  float64
	LossPercent float64
}

// NewFixedPayoff creates the fixed rule.
func NewFixedPayoff(cutoff, winPercent, lossPercent float64) *FixedPayoff {
	return &FixedPayoff{
		Cutoff:      cutoff,
		WinPercent:  winPercent,
		LossPercent: lossPercent,
	}
}

func (p *FixedPayoff) Name() string { return "fixed" }

func (p *FixedPayoff) Settle(sig models.Signal, stake float64) Outcome {
	if sig.Confidence >= p.Cutoff {
		return Outcome{Win: true, ProfitLoss: stake * p.WinPercent / 100}
	}
	return Outcome{Win: false, ProfitLoss: -stake * p.LossPercent / 100}
}

// PayoffFromConfig builds the configured settlement rule. The seed feeds
// the odds rule only; the fixed rule is seedless.
func PayoffFromConfig(cfg config.PayoffConfig, seed int64) Payoff {
	if cfg.Rule == "fixed" {
		return NewFixedPayoff(cfg.WinCutoff, cfg.WinPercent, cfg.LossPercent)
	}
	return NewOddsPayoff(seed)
}
