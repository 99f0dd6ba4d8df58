package trading

import (
	"math"
	"testing"

	"grail-agent/internal/config"
	"grail-agent/internal/models"
)

func TestOddsPayoffReproducible(t *testing.T) {
	a := NewOddsPayoff(42)
	b := NewOddsPayoff(42)

	for i := 0; i < 50; i++ {
		sig := signalWith(models.DirectionBuy, 0.60+float64(i%35)/100)
		sig.Odds = 1.5 + float64(i%10)/10

		oa := a.Settle(sig, 20)
		ob := b.Settle(sig, 20)
		if oa.Win != ob.Win || oa.ProfitLoss != ob.ProfitLoss {
			t.Fatalf("Settlement %d diverged: %+v vs %+v", i, oa, ob)
		}

		if oa.Win {
			want := 20 * (sig.Odds - 1)
			if math.Abs(oa.ProfitLoss-want) > 1e-9 {
				t.Errorf("Win payout: expected %.6f, got %.6f", want, oa.ProfitLoss)
			}
		} else if oa.ProfitLoss != -20 {
			t.Errorf("Loss payout: expected -20, got %.6f", oa.ProfitLoss)
		}
	}
}

func TestOddsPayoffConfidenceEdges(t *testing.T) {
	p := NewOddsPayoff(7)

	// The draw is in [0, 1), so full confidence always wins and zero
	// confidence always loses.
	for i := 0; i < 100; i++ {
		if out := p.Settle(signalWith(models.DirectionBuy, 1.0), 10); !out.Win {
			t.Fatal("Full confidence lost a settlement")
		}
		if out := p.Settle(signalWith(models.DirectionBuy, 0.0), 10); out.Win {
			t.Fatal("Zero confidence won a settlement")
		}
	}
}

func TestFixedPayoffDeterministic(t *testing.T) {
	p := NewFixedPayoff(0.80, 5, 3)

	win := p.Settle(signalWith(models.DirectionBuy, 0.80), 20)
	if !win.Win || math.Abs(win.ProfitLoss-1.0) > 1e-9 {
		t.Errorf("Confidence at cutoff: expected win +1.0, got %+v", win)
	}

	high := p.Settle(signalWith(models.DirectionBuy, 0.95), 20)
	if !high.Win || math.Abs(high.ProfitLoss-1.0) > 1e-9 {
		t.Errorf("High confidence: expected win +1.0, got %+v", high)
	}

	loss := p.Settle(signalWith(models.DirectionBuy, 0.79), 20)
	if loss.Win || math.Abs(loss.ProfitLoss-(-0.6)) > 1e-9 {
		t.Errorf("Below cutoff: expected loss -0.6, got %+v", loss)
	}
}

func TestPayoffFromConfig(t *testing.T) {
	fixed := PayoffFromConfig(config.PayoffConfig{Rule: "fixed", WinCutoff: 0.8, WinPercent: 5, LossPercent: 3}, 1)
	if _, ok := fixed.(*FixedPayoff); !ok {
		t.Errorf("Expected *FixedPayoff, got %T", fixed)
	}
	if fixed.Name() != "fixed" {
		t.Errorf("Expected name fixed, got %s", fixed.Name())
	}

	odds := PayoffFromConfig(config.PayoffConfig{Rule: "odds"}, 1)
	if _, ok := odds.(*OddsPayoff); !ok {
		t.Errorf("Expected *OddsPayoff, got %T", odds)
	}
	if odds.Name() != "odds" {
		t.Errorf("Expected name odds, got %s", odds.Name())
	}
}
