// Package store provides the persistence gateway interface and its
// SQLite and Postgres implementations.
package store

import (
	"context"
	"time"

	"grail-agent/internal/config"
	"grail-agent/internal/errors"
	"grail-agent/internal/models"
)

// Gateway is the persistence boundary for predictions, trades, and
// checkpoints. Writes are per-record: a failed write is reported to the
// caller and never affects trading state.
type Gateway interface {
	// Predictions & Trades
	InsertPrediction(ctx context.Context, p *models.Prediction) error
	InsertTrade(ctx context.Context, t *models.Trade) error
	Trades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	PatternPerformance(ctx context.Context) ([]PatternPerformance, error)

	// Checkpoints (append-only, uniquely sequenced)
	SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error
	CheckpointBySequence(ctx context.Context, seq uint64) (*models.Checkpoint, error)
	LatestCheckpoint(ctx context.Context) (*models.Checkpoint, error)
	CheckpointSequences(ctx context.Context) ([]uint64, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Asset  string
	RunID  string
	Result string
	Since  time.Time
	Limit  int
}

// PatternPerformance is one row of the per-pattern aggregate report.
type PatternPerformance struct {
	Pattern       models.Pattern
	Trades        int
	Wins          int
	WinRate       float64
	TotalPnL      float64
	AvgConfidence float64
}

// Open builds the Gateway selected by the database config.
func Open(cfg config.DatabaseConfig) (Gateway, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "postgres":
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "unknown database backend %q", cfg.Backend)
	}
}
