package trading

import (
	"strings"
	"testing"
	"time"

	"grail-agent/internal/models"
)

func signalWith(direction models.Direction, confidence float64) models.Signal {
	return models.Signal{
		Asset:          "BTC/USDT",
		Direction:      direction,
		Pattern:        models.PatternClassic,
		Confidence:     confidence,
		Odds:           1.9,
		Event:          "CLASSIC: BTC/USDT strong profit momentum",
		Sentiment:      models.SentimentPositive,
		SentimentScore: 0.7,
		Timestamp:      time.Now(),
	}
}

func TestDecideThresholdIsStrict(t *testing.T) {
	d := NewDecider(0.70)

	tests := []struct {
		name       string
		direction  models.Direction
		confidence float64
		execute    bool
	}{
		{"well above threshold", models.DirectionBuy, 0.95, true},
		{"just above threshold", models.DirectionBuy, 0.7000001, true},
		{"exactly at threshold", models.DirectionBuy, 0.70, false},
		{"just below threshold", models.DirectionBuy, 0.6999999, false},
		{"floor confidence", models.DirectionBuy, 0.60, false},
		{"sell above threshold", models.DirectionSell, 0.85, true},
		{"hold rejected regardless", models.DirectionHold, 0.95, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := d.Decide(signalWith(tt.direction, tt.confidence))
			if decision.Execute != tt.execute {
				t.Errorf("Decide(%s, %.7f): execute = %v, want %v",
					tt.direction, tt.confidence, decision.Execute, tt.execute)
			}
			if decision.Reason == "" {
				t.Error("Every decision needs a reason")
			}
		})
	}
}

func TestDecideReasons(t *testing.T) {
	d := NewDecider(0.70)

	hold := d.Decide(signalWith(models.DirectionHold, 0.9))
	if !strings.Contains(hold.Reason, "not tradeable") {
		t.Errorf("HOLD rejection reason: %q", hold.Reason)
	}

	low := d.Decide(signalWith(models.DirectionBuy, 0.65))
	if !strings.Contains(low.Reason, "threshold") {
		t.Errorf("Low-confidence rejection reason: %q", low.Reason)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	d := NewDecider(0.70)
	sig := signalWith(models.DirectionBuy, 0.71)

	first := d.Decide(sig)
	second := d.Decide(sig)
	if first.Execute != second.Execute || first.Reason != second.Reason {
		t.Errorf("Decide not deterministic: %+v vs %+v", first, second)
	}
	if first.Signal.Asset != sig.Asset || first.Signal.Confidence != sig.Confidence {
		t.Errorf("Decision does not carry the signal: %+v", first.Signal)
	}
}
