// Package models provides domain models for the trading agent.
package models

import (
	"time"
)

// Mode represents the trading mode.
type Mode string

const (
	ModeDemo Mode = "demo"
	ModeLive Mode = "live"
)

// Valid reports whether the mode is a known trading mode.
func (m Mode) Valid() bool {
	return m == ModeDemo || m == ModeLive
}

// Direction represents the direction of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Actionable reports whether the direction can be monetized.
func (d Direction) Actionable() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Pattern represents the event pattern class of a signal.
type Pattern string

const (
	PatternClassic   Pattern = "CLASSIC"
	PatternNewsEvent Pattern = "NEWSEVENT"
	PatternVolEvent  Pattern = "VOLEVENT"
)

// Patterns returns all known patterns in a stable order.
func Patterns() []Pattern {
	return []Pattern{PatternClassic, PatternNewsEvent, PatternVolEvent}
}

// Valid reports whether the pattern is a known pattern class.
func (p Pattern) Valid() bool {
	switch p {
	case PatternClassic, PatternNewsEvent, PatternVolEvent:
		return true
	}
	return false
}

// Sentiment represents the sentiment label of an event description.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// Signal represents a generated trading recommendation.
// A Signal is immutable once created; it is passed by value everywhere.
type Signal struct {
	Asset          string
	Direction      Direction
	Pattern        Pattern
	Confidence     float64 // [0.60, 0.95]
	Odds           float64 // payout multiplier, [1.5, 2.5]
	Event          string  // synthesized event title
	Sentiment      Sentiment
	SentimentScore float64
	Timestamp      time.Time
}

// Prediction represents one logged prediction attempt, executed or not.
// Mirrors a row in the gateway's predictions table.
type Prediction struct {
	ID             string
	RunID          string
	Event          string
	Asset          string
	Direction      Direction
	Pattern        Pattern
	Sentiment      Sentiment
	SentimentScore float64
	Confidence     float64
	Mode           Mode
	Executed       bool
	Timestamp      time.Time
}
