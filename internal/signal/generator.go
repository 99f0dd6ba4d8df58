// Package signal generates synthetic trading signals.
//
// The generator is pure with respect to external state: its output depends
// only on the injected random source and the configured asset universe. It
// never reads the ledger, so two runs with the same seed produce the same
// signal sequence regardless of trading outcomes.
package signal

import (
	"fmt"
	"math/rand"
	"time"

	"grail-agent/internal/errors"
	"grail-agent/internal/models"
)

// Narrative pool for synthesized event descriptions. The phrases carry
// the sentiment keywords, so the heuristic produces a realistic spread of
// BUY, SELL, and HOLD signals across the pool.
var eventNarratives = []string{
	"profit taking ahead of earnings",
	"bullish momentum building with strong gain potential",
	"positive breakout confirmed, volume trending up",
	"profit margin gain, guidance revised up, bullish analysts positive",
	"bearish divergence, downside risk growing",
	"loss of momentum after weak report",
	"negative outlook, trending down on heavy selling",
	"risk of further decline",
	"profit warning flags downside risk",
	"consolidation range, direction unclear",
	"sideways churn awaiting catalyst",
	"mixed signals from recent sessions",
}

// Multipliers applied to the sentiment score when scoring confidence.
const (
	newsEventMultiplier = 1.2
	classicMultiplier   = 1.1
	volEventMultiplier  = 0.95
	sweetSpotMultiplier = 1.05

	oddsMin = 1.5
	oddsMax = 2.5

	confidenceFloor = 0.60
	confidenceCeil  = 0.95
)

// Generator produces synthetic trading signals.
type Generator struct {
	assets   []string
	patterns []models.Pattern
	rng      *rand.Rand
}

// NewGenerator creates a generator over the given asset universe.
// A seed of 0 seeds from the clock; any other seed gives a reproducible
// signal sequence.
func NewGenerator(assets []string, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		assets:   assets,
		patterns: models.Patterns(),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Generate produces one signal. An empty asset universe or pattern set
// returns a *errors.GeneratorError; the caller skips the slot and
// continues.
func (g *Generator) Generate() (models.Signal, error) {
	if len(g.assets) == 0 {
		return models.Signal{}, errors.NewGeneratorError("no assets to signal on", errors.ErrEmptyAssetUniverse)
	}
	if len(g.patterns) == 0 {
		return models.Signal{}, errors.NewGeneratorError("no patterns to signal on", nil)
	}

	pattern := g.patterns[g.rng.Intn(len(g.patterns))]
	asset := g.assets[g.rng.Intn(len(g.assets))]
	odds := oddsMin + g.rng.Float64()*(oddsMax-oddsMin)
	narrative := eventNarratives[g.rng.Intn(len(eventNarratives))]
	event := fmt.Sprintf("%s: %s %s", pattern, asset, narrative)

	sentiment, score := AnalyzeSentiment(event)

	return models.Signal{
		Asset:          asset,
		Direction:      directionFor(sentiment),
		Pattern:        pattern,
		Confidence:     scoreConfidence(score, pattern, odds),
		Odds:           odds,
		Event:          event,
		Sentiment:      sentiment,
		SentimentScore: score,
		Timestamp:      time.Now(),
	}, nil
}

// GenerateBatch produces n signals, stopping at the first generator error.
func (g *Generator) GenerateBatch(n int) ([]models.Signal, error) {
	signals := make([]models.Signal, 0, n)
	for i := 0; i < n; i++ {
		sig, err := g.Generate()
		if err != nil {
			return signals, err
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

// scoreConfidence combines the sentiment score with pattern and odds
// multipliers and clamps the result into [0.60, 0.95].
func scoreConfidence(sentimentScore float64, pattern models.Pattern, odds float64) float64 {
	confidence := sentimentScore * patternMultiplier(pattern)
	if odds >= 1.8 && odds <= 2.2 {
		confidence *= sweetSpotMultiplier
	}

	if confidence < confidenceFloor {
		return confidenceFloor
	}
	if confidence > confidenceCeil {
		return confidenceCeil
	}
	return confidence
}

func patternMultiplier(p models.Pattern) float64 {
	switch p {
	case models.PatternNewsEvent:
		return newsEventMultiplier
	case models.PatternClassic:
		return classicMultiplier
	case models.PatternVolEvent:
		return volEventMultiplier
	}
	return 1.0
}

func directionFor(s models.Sentiment) models.Direction {
	switch s {
	case models.SentimentPositive:
		return models.DirectionBuy
	case models.SentimentNegative:
		return models.DirectionSell
	}
	return models.DirectionHold
}
