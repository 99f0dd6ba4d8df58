package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"grail-agent/internal/errors"
	"grail-agent/internal/models"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// PostgresStore implements Gateway against a hosted Postgres database.
// Selected with database.backend = "postgres"; the DSN comes from config
// or DATABASE_URL.
type PostgresStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresStore connects to Postgres and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.ErrMissingDSN
	}

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db, timeout: 10 * time.Second}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL,
		asset TEXT NOT NULL,
		direction TEXT NOT NULL,
		pattern TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		sentiment_score DOUBLE PRECISION NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		mode TEXT NOT NULL,
		executed BOOLEAN NOT NULL DEFAULT FALSE,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL,
		asset TEXT NOT NULL,
		direction TEXT NOT NULL,
		pattern TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		odds DOUBLE PRECISION NOT NULL,
		result TEXT NOT NULL,
		stake DOUBLE PRECISION NOT NULL,
		profit_loss DOUBLE PRECISION NOT NULL,
		balance_after DOUBLE PRECISION NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS checkpoints (
		sequence BIGINT PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		win_rate DOUBLE PRECISION NOT NULL,
		total_pnl DOUBLE PRECISION NOT NULL,
		trades INTEGER NOT NULL,
		balance DOUBLE PRECISION NOT NULL,
		patterns JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_asset ON trades(asset);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InsertPrediction saves one prediction row.
func (s *PostgresStore) InsertPrediction(ctx context.Context, p *models.Prediction) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, run_id, event, asset, direction, pattern, sentiment, sentiment_score, confidence, mode, executed, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.RunID, p.Event, p.Asset, string(p.Direction), string(p.Pattern),
		string(p.Sentiment), p.SentimentScore, p.Confidence, string(p.Mode), p.Executed, p.Timestamp)
	if err != nil {
		return errors.NewPersistenceError("insert_prediction", "predictions", err)
	}
	return nil
}

// InsertTrade saves one settled trade row.
func (s *PostgresStore) InsertTrade(ctx context.Context, t *models.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, run_id, event, asset, direction, pattern, confidence, odds, result, stake, profit_loss, balance_after, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.ID, t.RunID, t.Signal.Event, t.Signal.Asset, string(t.Signal.Direction), string(t.Signal.Pattern),
		t.Signal.Confidence, t.Signal.Odds, string(t.Result), t.Stake, t.ProfitLoss, t.BalanceAfter, t.Timestamp)
	if err != nil {
		return errors.NewPersistenceError("insert_trade", "trades", err)
	}
	return nil
}

// Trades queries settled trades with optional filters, newest first.
func (s *PostgresStore) Trades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, run_id, event, asset, direction, pattern, confidence, odds, result, stake, profit_loss, balance_after, timestamp
		FROM trades WHERE 1=1`
	args := []interface{}{}
	arg := 0
	next := func() string {
		arg++
		return fmt.Sprintf("$%d", arg)
	}

	if filter.Asset != "" {
		query += " AND asset = " + next()
		args = append(args, filter.Asset)
	}
	if filter.RunID != "" {
		query += " AND run_id = " + next()
		args = append(args, filter.RunID)
	}
	if filter.Result != "" {
		query += " AND result = " + next()
		args = append(args, filter.Result)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= " + next()
		args = append(args, filter.Since)
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + next()
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewPersistenceError("query_trades", "trades", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var direction, pattern, result string
		if err := rows.Scan(&t.ID, &t.RunID, &t.Signal.Event, &t.Signal.Asset, &direction, &pattern,
			&t.Signal.Confidence, &t.Signal.Odds, &result, &t.Stake, &t.ProfitLoss, &t.BalanceAfter, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Signal.Direction = models.Direction(direction)
		t.Signal.Pattern = models.Pattern(pattern)
		t.Result = models.TradeResult(result)
		t.Executed = true
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// PatternPerformance aggregates settled trades per pattern.
func (s *PostgresStore) PatternPerformance(ctx context.Context) ([]PatternPerformance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT pattern,
		       COUNT(*) AS trades,
		       SUM(CASE WHEN result = 'WIN' THEN 1 ELSE 0 END) AS wins,
		       SUM(profit_loss) AS total_pnl,
		       AVG(confidence) AS avg_confidence
		FROM trades
		GROUP BY pattern
		ORDER BY pattern
	`)
	if err != nil {
		return nil, errors.NewPersistenceError("pattern_performance", "trades", err)
	}
	defer rows.Close()

	var report []PatternPerformance
	for rows.Next() {
		var p PatternPerformance
		var pattern string
		if err := rows.Scan(&pattern, &p.Trades, &p.Wins, &p.TotalPnL, &p.AvgConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan pattern row: %w", err)
		}
		p.Pattern = models.Pattern(pattern)
		if p.Trades > 0 {
			p.WinRate = float64(p.Wins) / float64(p.Trades)
		}
		report = append(report, p)
	}
	return report, rows.Err()
}

// SaveCheckpoint appends one checkpoint. A duplicate sequence hits the
// primary key and comes back as ErrCheckpointDuplicate.
func (s *PostgresStore) SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	patterns, err := json.Marshal(cp.Patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (sequence, timestamp, win_rate, total_pnl, trades, balance, patterns)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cp.Sequence, cp.Timestamp, cp.WinRate, cp.TotalPnL, cp.Trades, cp.Balance, string(patterns))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return errors.Wrapf(errors.ErrCheckpointDuplicate, "sequence %d", cp.Sequence)
		}
		return errors.NewPersistenceError("save_checkpoint", "checkpoints", err)
	}
	return nil
}

// CheckpointBySequence loads one checkpoint by sequence number.
func (s *PostgresStore) CheckpointBySequence(ctx context.Context, seq uint64) (*models.Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT sequence, timestamp, win_rate, total_pnl, trades, balance, patterns
		FROM checkpoints WHERE sequence = $1
	`, seq)
	return scanPostgresCheckpoint(row)
}

// LatestCheckpoint loads the checkpoint with the highest sequence number.
func (s *PostgresStore) LatestCheckpoint(ctx context.Context) (*models.Checkpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT sequence, timestamp, win_rate, total_pnl, trades, balance, patterns
		FROM checkpoints ORDER BY sequence DESC LIMIT 1
	`)
	return scanPostgresCheckpoint(row)
}

// CheckpointSequences lists all stored sequence numbers in ascending order.
func (s *PostgresStore) CheckpointSequences(ctx context.Context) ([]uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var seqs []uint64
	if err := s.db.SelectContext(ctx, &seqs, `SELECT sequence FROM checkpoints ORDER BY sequence ASC`); err != nil {
		return nil, errors.NewPersistenceError("list_checkpoints", "checkpoints", err)
	}
	return seqs, nil
}

func scanPostgresCheckpoint(row *sql.Row) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var patterns []byte
	err := row.Scan(&cp.Sequence, &cp.Timestamp, &cp.WinRate, &cp.TotalPnL, &cp.Trades, &cp.Balance, &patterns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, errors.NewPersistenceError("load_checkpoint", "checkpoints", err)
	}
	if err := json.Unmarshal(patterns, &cp.Patterns); err != nil {
		return nil, errors.Wrap(errors.ErrCheckpointInvalid, "stored pattern stats are not valid JSON")
	}
	return &cp, nil
}
