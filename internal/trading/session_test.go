package trading

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"grail-agent/internal/checkpoint"
	"grail-agent/internal/config"
	"grail-agent/internal/errors"
	"grail-agent/internal/models"
	"grail-agent/internal/store"
)

// sessionConfig builds a deterministic demo config: fixed signal seed,
// fixed payoff rule, and a threshold of 0.5 so every BUY/SELL signal is
// approved (generated confidence never goes below 0.60).
func sessionConfig(t *testing.T, predictions int) *config.Config {
	t.Helper()
	return &config.Config{
		Trading: config.TradingConfig{
			Mode:                "demo",
			Bankroll:            1000,
			Predictions:         predictions,
			ConfidenceThreshold: 0.5,
		},
		Signal: config.SignalConfig{
			Assets: config.DefaultAssets(),
			Seed:   12345,
		},
		Payoff: config.PayoffConfig{
			Rule:        "fixed",
			WinCutoff:   0.80,
			WinPercent:  5,
			LossPercent: 3,
		},
		Risk: config.RiskConfig{
			StakePercent:         2,
			MaxStakePercent:      10,
			MaxConsecutiveLosses: 3,
			Cooldown:             time.Minute,
			DrawdownStopPercent:  50,
		},
		Checkpoint: config.CheckpointConfig{
			Dir:      filepath.Join(t.TempDir(), ".checkpoints"),
			Interval: 20,
			Store:    "file",
		},
		Database: config.DatabaseConfig{
			Backend: "sqlite",
			Path:    filepath.Join(t.TempDir(), "grail.db"),
		},
	}
}

type sessionEnv struct {
	cfg     *config.Config
	gateway store.Gateway
	manager *checkpoint.Manager
}

func newSessionEnv(t *testing.T, cfg *config.Config) *sessionEnv {
	t.Helper()
	ctx := context.Background()

	gateway, err := store.Open(cfg.Database)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { gateway.Close() })

	cpStore, err := checkpoint.NewStore(cfg.Checkpoint, gateway)
	if err != nil {
		t.Fatalf("checkpoint.NewStore: %v", err)
	}
	manager, err := checkpoint.NewManager(ctx, cpStore)
	if err != nil {
		t.Fatalf("checkpoint.NewManager: %v", err)
	}
	return &sessionEnv{cfg: cfg, gateway: gateway, manager: manager}
}

func (e *sessionEnv) run(t *testing.T, opts RunOptions) *Summary {
	t.Helper()
	session := NewSession(e.cfg, e.manager, e.gateway, zerolog.Nop())
	summary, err := session.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary == nil {
		t.Fatal("Run returned nil summary")
	}
	return summary
}

func TestSessionFreshRun(t *testing.T) {
	cfg := sessionConfig(t, 20)
	env := newSessionEnv(t, cfg)
	summary := env.run(t, RunOptions{})

	if summary.Mode != models.ModeDemo {
		t.Errorf("Mode: expected demo, got %s", summary.Mode)
	}
	if summary.RunID == "" {
		t.Error("Summary needs a run id")
	}
	if summary.Predictions != 20 {
		t.Errorf("Predictions: expected 20, got %d", summary.Predictions)
	}
	if summary.Executed < 1 {
		t.Fatalf("Expected at least one executed trade over 20 slots, got %d", summary.Executed)
	}
	if summary.TotalTrades != summary.Executed {
		t.Errorf("Fresh run: total trades %d != executed %d", summary.TotalTrades, summary.Executed)
	}
	if summary.Wins+summary.Losses != summary.TotalTrades {
		t.Errorf("Counts: wins %d + losses %d != trades %d", summary.Wins, summary.Losses, summary.TotalTrades)
	}
	if math.Abs(summary.FinalBalance-(summary.InitialBalance+summary.TotalPnL)) > 1e-9 {
		t.Errorf("Invariant: final %.9f != initial %.2f + pnl %.9f",
			summary.FinalBalance, summary.InitialBalance, summary.TotalPnL)
	}
	if summary.Halted {
		t.Error("A 20-slot demo run must not halt")
	}

	// Every slot persisted one prediction, every executed trade one row.
	ctx := context.Background()
	trades, err := env.gateway.Trades(ctx, store.TradeFilter{RunID: summary.RunID})
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(trades) != summary.Executed {
		t.Errorf("Stored trades: expected %d, got %d", summary.Executed, len(trades))
	}

	// The run ends with a durable snapshot of the final ledger.
	if env.manager.LastSequence() < 1 {
		t.Fatal("No checkpoint written")
	}
	latest, err := env.manager.RestoreLatest(ctx)
	if err != nil {
		t.Fatalf("RestoreLatest: %v", err)
	}
	if latest.TotalTrades != summary.TotalTrades {
		t.Errorf("Checkpoint trades: expected %d, got %d", summary.TotalTrades, latest.TotalTrades)
	}
	if math.Abs(latest.Balance-summary.FinalBalance) > 1e-9 {
		t.Errorf("Checkpoint balance: expected %.9f, got %.9f", summary.FinalBalance, latest.Balance)
	}
}

func TestSessionResumesAcrossRuns(t *testing.T) {
	cfg := sessionConfig(t, 20)
	env := newSessionEnv(t, cfg)

	first := env.run(t, RunOptions{})
	if first.Executed < 1 {
		t.Fatalf("First run executed nothing")
	}

	// A second process over the same stores picks up where the first
	// one stopped.
	env2 := newSessionEnv(t, cfg)
	second := env2.run(t, RunOptions{})

	if second.TotalTrades != first.TotalTrades+second.Executed {
		t.Errorf("Trade history lost: first %d + run %d != total %d",
			first.TotalTrades, second.Executed, second.TotalTrades)
	}
	if math.Abs(second.InitialBalance-1000) > 1e-9 {
		t.Errorf("Initial balance: expected 1000, got %.6f", second.InitialBalance)
	}
	runPnL := second.TotalPnL - first.TotalPnL
	if math.Abs(second.FinalBalance-(first.FinalBalance+runPnL)) > 1e-9 {
		t.Errorf("Balance chain broken: %.9f != %.9f + %.9f",
			second.FinalBalance, first.FinalBalance, runPnL)
	}
}

func TestSessionEmptyStoreStartsFresh(t *testing.T) {
	cfg := sessionConfig(t, 0)
	env := newSessionEnv(t, cfg)
	summary := env.run(t, RunOptions{})

	if summary.Predictions != 0 || summary.Executed != 0 {
		t.Errorf("Zero-slot run produced work: %+v", summary)
	}
	if summary.FinalBalance != 1000 || summary.InitialBalance != 1000 {
		t.Errorf("Expected fresh 1000 ledger, got initial %.2f final %.2f",
			summary.InitialBalance, summary.FinalBalance)
	}
	if env.manager.LastSequence() != 0 {
		t.Errorf("Tradeless run wrote checkpoint %d", env.manager.LastSequence())
	}
}

func TestSessionRestoreNamedCheckpoint(t *testing.T) {
	cfg := sessionConfig(t, 0)
	env := newSessionEnv(t, cfg)
	ctx := context.Background()

	ledger := models.NewLedger(1000)
	ledger.Balance = 1005
	ledger.TotalTrades = 3
	ledger.Wins = 2
	ledger.Losses = 1
	ledger.TotalPnL = 5
	ledger.PatternStats[models.PatternClassic] = models.PatternStats{Trades: 3, Wins: 2}
	if _, err := env.manager.Snapshot(ctx, ledger); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	ledger.Balance = 1010
	ledger.TotalPnL = 10
	ledger.TotalTrades = 4
	ledger.Losses = 2
	ledger.PatternStats[models.PatternClassic] = models.PatternStats{Trades: 4, Wins: 2}
	if _, err := env.manager.Snapshot(ctx, ledger); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	summary := env.run(t, RunOptions{FromCheckpoint: 1})
	if math.Abs(summary.FinalBalance-1005) > 1e-9 {
		t.Errorf("Expected balance from checkpoint 1 (1005), got %.6f", summary.FinalBalance)
	}
	if summary.TotalTrades != 3 {
		t.Errorf("Expected 3 trades from checkpoint 1, got %d", summary.TotalTrades)
	}

	// A named checkpoint that does not exist fails the run outright.
	session := NewSession(cfg, env.manager, env.gateway, zerolog.Nop())
	if _, err := session.Run(ctx, RunOptions{FromCheckpoint: 99}); !errors.Is(err, errors.ErrCheckpointNotFound) {
		t.Errorf("Missing named checkpoint: expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestSessionInvalidLatestFallsBack(t *testing.T) {
	cfg := sessionConfig(t, 0)
	ctx := context.Background()

	bad := &models.Checkpoint{
		Sequence:  1,
		Timestamp: time.Now().UTC(),
		WinRate:   2.0, // impossible
		Trades:    5,
		Balance:   1234,
		Patterns:  map[string]models.PatternSnapshot{},
	}
	fs := checkpoint.NewFileStore(cfg.Checkpoint.Dir)
	if err := fs.Save(ctx, bad); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Manager built after the bad record is on disk.
	env := newSessionEnv(t, cfg)
	summary := env.run(t, RunOptions{})
	if summary.FinalBalance != 1000 {
		t.Errorf("Expected fallback to fresh 1000 ledger, got %.2f", summary.FinalBalance)
	}
}

func TestSessionLiveModeSettlesNothing(t *testing.T) {
	cfg := sessionConfig(t, 10)
	cfg.Trading.Mode = "live"
	env := newSessionEnv(t, cfg)
	summary := env.run(t, RunOptions{})

	if summary.Mode != models.ModeLive {
		t.Errorf("Mode: expected live, got %s", summary.Mode)
	}
	if summary.Predictions != 10 {
		t.Errorf("Predictions: expected 10, got %d", summary.Predictions)
	}
	if summary.Executed != 0 || summary.TotalTrades != 0 {
		t.Errorf("Live mode settled trades: executed %d total %d", summary.Executed, summary.TotalTrades)
	}
	if summary.FinalBalance != 1000 {
		t.Errorf("Live mode moved the balance: %.2f", summary.FinalBalance)
	}
	if env.manager.LastSequence() != 0 {
		t.Error("Live mode wrote a checkpoint with no settled trades")
	}

	trades, err := env.gateway.Trades(context.Background(), store.TradeFilter{})
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("Live mode stored %d trades", len(trades))
	}
}

func TestSessionEmergencyStopOnRestoredDrawdown(t *testing.T) {
	cfg := sessionConfig(t, 10)
	env := newSessionEnv(t, cfg)
	ctx := context.Background()

	// Restored state already below half the initial bankroll.
	drained := models.NewLedger(1000)
	drained.Balance = 400
	drained.TotalPnL = -600
	drained.TotalTrades = 12
	drained.Wins = 2
	drained.Losses = 10
	drained.PatternStats[models.PatternVolEvent] = models.PatternStats{Trades: 12, Wins: 2}
	if _, err := env.manager.Snapshot(ctx, drained); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	summary := env.run(t, RunOptions{})
	if !summary.Halted {
		t.Fatal("Expected emergency stop on restored drawdown")
	}
	if summary.Predictions != 0 || summary.Executed != 0 {
		t.Errorf("Halted run still traded: %+v", summary)
	}
	if math.Abs(summary.FinalBalance-400) > 1e-9 {
		t.Errorf("Balance moved during halt: %.2f", summary.FinalBalance)
	}
}

func TestSessionCancelledBetweenUnits(t *testing.T) {
	cfg := sessionConfig(t, 50)
	env := newSessionEnv(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the first slot

	session := NewSession(cfg, env.manager, env.gateway, zerolog.Nop())
	summary, err := session.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("Cancelled run must still return a summary: %v", err)
	}
	if summary.Predictions != 0 || summary.Executed != 0 {
		t.Errorf("Cancelled run did work: %+v", summary)
	}
	if summary.FinalBalance != 1000 {
		t.Errorf("Cancelled run moved the balance: %.2f", summary.FinalBalance)
	}
}
