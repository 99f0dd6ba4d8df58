package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"grail-agent/internal/errors"
	"grail-agent/internal/models"
)

// SQLiteStore implements Gateway using SQLite. This is the default
// backend: demo mode needs no credentials and a single local file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed gateway.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Predictions table: one row per generated signal, executed or not
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL,
		asset TEXT NOT NULL,
		direction TEXT NOT NULL,
		pattern TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		sentiment_score REAL NOT NULL,
		confidence REAL NOT NULL,
		mode TEXT NOT NULL,
		executed INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trades table: one row per settled virtual trade
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL,
		asset TEXT NOT NULL,
		direction TEXT NOT NULL,
		pattern TEXT NOT NULL,
		confidence REAL NOT NULL,
		odds REAL NOT NULL,
		result TEXT NOT NULL,
		stake REAL NOT NULL,
		profit_loss REAL NOT NULL,
		balance_after REAL NOT NULL,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Checkpoints table: append-only ledger snapshots. The primary key on
	-- sequence makes a duplicate writer fail instead of overwriting.
	CREATE TABLE IF NOT EXISTS checkpoints (
		sequence INTEGER PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		win_rate REAL NOT NULL,
		total_pnl REAL NOT NULL,
		trades INTEGER NOT NULL,
		balance REAL NOT NULL,
		patterns TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_run ON predictions(run_id);
	CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id);
	CREATE INDEX IF NOT EXISTS idx_trades_asset ON trades(asset);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertPrediction saves one prediction row.
func (s *SQLiteStore) InsertPrediction(ctx context.Context, p *models.Prediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO predictions (id, run_id, event, asset, direction, pattern, sentiment, sentiment_score, confidence, mode, executed, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.RunID, p.Event, p.Asset, string(p.Direction), string(p.Pattern),
		string(p.Sentiment), p.SentimentScore, p.Confidence, string(p.Mode), p.Executed, p.Timestamp)
	if err != nil {
		return errors.NewPersistenceError("insert_prediction", "predictions", err)
	}
	return nil
}

// InsertTrade saves one settled trade row.
func (s *SQLiteStore) InsertTrade(ctx context.Context, t *models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, run_id, event, asset, direction, pattern, confidence, odds, result, stake, profit_loss, balance_after, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.RunID, t.Signal.Event, t.Signal.Asset, string(t.Signal.Direction), string(t.Signal.Pattern),
		t.Signal.Confidence, t.Signal.Odds, string(t.Result), t.Stake, t.ProfitLoss, t.BalanceAfter, t.Timestamp)
	if err != nil {
		return errors.NewPersistenceError("insert_trade", "trades", err)
	}
	return nil
}

// Trades queries settled trades with optional filters, newest first.
func (s *SQLiteStore) Trades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `
		SELECT id, run_id, event, asset, direction, pattern, confidence, odds, result, stake, profit_loss, balance_after, timestamp
		FROM trades WHERE 1=1`
	args := []interface{}{}

	if filter.Asset != "" {
		query += " AND asset = ?"
		args = append(args, filter.Asset)
	}
	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Result != "" {
		query += " AND result = ?"
		args = append(args, filter.Result)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
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
func (s *SQLiteStore) PatternPerformance(ctx context.Context) ([]PatternPerformance, error) {
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

// SaveCheckpoint appends one checkpoint. Saving an already-used sequence
// returns ErrCheckpointDuplicate; existing rows are never overwritten.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *models.Checkpoint) error {
	patterns, err := json.Marshal(cp.Patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern stats: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (sequence, timestamp, win_rate, total_pnl, trades, balance, patterns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cp.Sequence, cp.Timestamp, cp.WinRate, cp.TotalPnL, cp.Trades, cp.Balance, string(patterns))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return errors.Wrapf(errors.ErrCheckpointDuplicate, "sequence %d", cp.Sequence)
		}
		return errors.NewPersistenceError("save_checkpoint", "checkpoints", err)
	}
	return nil
}

// CheckpointBySequence loads one checkpoint by sequence number.
func (s *SQLiteStore) CheckpointBySequence(ctx context.Context, seq uint64) (*models.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sequence, timestamp, win_rate, total_pnl, trades, balance, patterns
		FROM checkpoints WHERE sequence = ?
	`, seq)
	return scanCheckpoint(row)
}

// LatestCheckpoint loads the checkpoint with the highest sequence number.
func (s *SQLiteStore) LatestCheckpoint(ctx context.Context) (*models.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sequence, timestamp, win_rate, total_pnl, trades, balance, patterns
		FROM checkpoints ORDER BY sequence DESC LIMIT 1
	`)
	return scanCheckpoint(row)
}

// CheckpointSequences lists all stored sequence numbers in ascending order.
func (s *SQLiteStore) CheckpointSequences(ctx context.Context) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sequence FROM checkpoints ORDER BY sequence ASC`)
	if err != nil {
		return nil, errors.NewPersistenceError("list_checkpoints", "checkpoints", err)
	}
	defer rows.Close()

	var seqs []uint64
	for rows.Next() {
		var seq uint64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}
		seqs = append(seqs, seq)
	}
	return seqs, rows.Err()
}

func scanCheckpoint(row *sql.Row) (*models.Checkpoint, error) {
	var cp models.Checkpoint
	var patterns string
	err := row.Scan(&cp.Sequence, &cp.Timestamp, &cp.WinRate, &cp.TotalPnL, &cp.Trades, &cp.Balance, &patterns)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrCheckpointNotFound
	}
	if err != nil {
		return nil, errors.NewPersistenceError("load_checkpoint", "checkpoints", err)
	}
	if err := json.Unmarshal([]byte(patterns), &cp.Patterns); err != nil {
		return nil, errors.Wrap(errors.ErrCheckpointInvalid, "stored pattern stats are not valid JSON")
	}
	return &cp, nil
}
