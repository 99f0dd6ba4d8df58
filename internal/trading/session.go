package trading

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"grail-agent/internal/checkpoint"
	"grail-agent/internal/config"
	"grail-agent/internal/errors"
	"grail-agent/internal/logging"
	"grail-agent/internal/models"
	"grail-agent/internal/signal"
	"grail-agent/internal/store"
	"grail-agent/pkg/utils"
)

// RunOptions selects how a session starts.
type RunOptions struct {
	// FromCheckpoint restores a specific snapshot; 0 restores the latest.
	FromCheckpoint uint64
}

// Summary is the outcome of one session run. Predictions and Executed
// count this run only; the trade and balance figures reflect the full
// ledger history carried across checkpoints.
type Summary struct {
	Mode           models.Mode
	RunID          string
	Predictions    int
	Executed       int
	TotalTrades    int
	Wins           int
	Losses         int
	WinRate        float64
	InitialBalance float64
	FinalBalance   float64
	TotalPnL       float64
	ROI            float64
	Halted         bool
}

// Session drives one scheduled run: restore state, generate and decide
// on a batch of signals, settle the approved ones, persist everything,
// and checkpoint the ledger for the next process.
type Session struct {
	cfg       *config.Config
	generator *signal.Generator
	decider   *Decider
	breaker   *Breaker
	payoff    Payoff
	manager   *checkpoint.Manager
	gateway   store.Gateway
	logger    zerolog.Logger
	retry     utils.RetryConfig
	runID     string
}

// NewSession wires a session from configuration. Every run gets a fresh
// run ID; all log lines and persisted rows carry it.
func NewSession(cfg *config.Config, manager *checkpoint.Manager, gateway store.Gateway, logger zerolog.Logger) *Session {
	runID := uuid.New().String()

	// The settlement draws must not mirror the signal draws, so the
	// payoff rule gets its own seed.
	payoffSeed := cfg.Signal.Seed
	if payoffSeed != 0 {
		payoffSeed++
	}

	return &Session{
		cfg:       cfg,
		generator: signal.NewGenerator(cfg.Signal.Assets, cfg.Signal.Seed),
		decider:   NewDecider(cfg.Trading.ConfidenceThreshold),
		breaker:   NewBreaker(cfg.Risk.MaxConsecutiveLosses, cfg.Risk.Cooldown, cfg.Risk.DrawdownStopPercent),
		payoff:    PayoffFromConfig(cfg.Payoff, payoffSeed),
		manager:   manager,
		gateway:   gateway,
		logger:    logging.WithRunID(logger, runID),
		retry:     utils.DefaultRetryConfig(),
		runID:     runID,
	}
}

// RunID returns the identifier stamped on this session's rows and logs.
func (s *Session) RunID() string {
	return s.runID
}

// Run executes one batch of prediction slots. Per-slot failures are
// isolated: a generator error skips the slot, a persistence failure is
// retried and logged, and only the emergency drawdown stop ends the
// batch early. The returned summary is non-nil whenever err is nil.
func (s *Session) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	ledger, err := s.openLedger(ctx, opts)
	if err != nil {
		return nil, err
	}

	var executor Executor
	if s.cfg.IsLiveMode() {
		executor = NewLiveExecutor()
	} else {
		executor = NewVirtualExecutor(s.payoff)
	}
	engine := NewEngine(ledger, executor, s.cfg.Risk.StakePercent, s.cfg.Risk.MaxStakePercent, s.runID)

	summary := &Summary{Mode: executor.Mode(), RunID: s.runID}
	sinceSnapshot := 0

	s.logger.Info().
		Str("mode", string(summary.Mode)).
		Int("predictions", s.cfg.Trading.Predictions).
		Float64("balance", ledger.Balance).
		Msg("Session started")

	// A restored ledger can already be past the drawdown floor.
	if err := s.breaker.CheckDrawdown(ledger.Balance, ledger.InitialBalance); err != nil {
		s.logger.Error().Err(err).Msg("Emergency stop: drawdown floor reached before trading")
		summary.Halted = true
	}

	for slot := 0; slot < s.cfg.Trading.Predictions && !summary.Halted; slot++ {
		if ctx.Err() != nil {
			s.logger.Warn().Int("slot", slot).Msg("Run cancelled, stopping between units")
			break
		}

		sig, err := s.generator.Generate()
		if err != nil {
			s.logger.Warn().Err(err).Int("slot", slot).Msg("Signal generation failed, slot skipped")
			continue
		}
		summary.Predictions++
		logging.LogSignal(s.logger, sig.Asset, string(sig.Direction), string(sig.Pattern), sig.Confidence)

		decision := s.decider.Decide(sig)
		logging.LogDecision(s.logger, sig.Asset, decision.Execute, sig.Confidence, decision.Reason)

		var trade *models.Trade
		if decision.Execute {
			trade = s.execute(ctx, engine, sig)
		}

		s.persistPrediction(ctx, sig, trade != nil)
		if trade != nil {
			summary.Executed++
			sinceSnapshot++
			s.persistTrade(ctx, trade)

			if ledger.TotalTrades%s.cfg.Checkpoint.Interval == 0 {
				if s.snapshot(ctx, ledger) {
					sinceSnapshot = 0
				}
			}
			if err := s.breaker.CheckDrawdown(ledger.Balance, ledger.InitialBalance); err != nil {
				s.logger.Error().Err(err).Msg("Emergency stop: trading halted for this run")
				summary.Halted = true
			}
		}
	}

	// The next process resumes from here, so the final snapshot goes
	// through even when the run context was cancelled.
	if sinceSnapshot > 0 {
		s.snapshot(context.Background(), ledger)
	}

	summary.TotalTrades = ledger.TotalTrades
	summary.Wins = ledger.Wins
	summary.Losses = ledger.Losses
	summary.WinRate = ledger.WinRate()
	summary.InitialBalance = ledger.InitialBalance
	summary.FinalBalance = ledger.Balance
	summary.TotalPnL = ledger.TotalPnL
	summary.ROI = ledger.ROI()

	s.logger.Info().
		Int("predictions", summary.Predictions).
		Int("executed", summary.Executed).
		Float64("balance", summary.FinalBalance).
		Float64("pnl", summary.TotalPnL).
		Bool("halted", summary.Halted).
		Msg("Session finished")

	return summary, nil
}

// openLedger restores ledger state for this run. The latest-checkpoint
// path falls back to a fresh ledger when nothing usable is stored; an
// explicitly requested checkpoint that cannot be restored fails the run.
func (s *Session) openLedger(ctx context.Context, opts RunOptions) (*models.Ledger, error) {
	var (
		ledger *models.Ledger
		err    error
	)
	if opts.FromCheckpoint > 0 {
		ledger, err = s.manager.Restore(ctx, opts.FromCheckpoint)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot resume from checkpoint %d", opts.FromCheckpoint)
		}
		s.logger.Info().
			Uint64("checkpoint", opts.FromCheckpoint).
			Float64("balance", ledger.Balance).
			Int("trades", ledger.TotalTrades).
			Msg("Resumed from checkpoint")
		return ledger, nil
	}

	ledger, err = s.manager.RestoreLatest(ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Uint64("checkpoint", s.manager.LastSequence()).
			Float64("balance", ledger.Balance).
			Int("trades", ledger.TotalTrades).
			Msg("Resumed from checkpoint")
		return ledger, nil
	case errors.Is(err, errors.ErrCheckpointNotFound):
		s.logger.Info().Msg("No checkpoint found, starting fresh")
	case errors.Is(err, errors.ErrCheckpointInvalid):
		s.logger.Warn().Err(err).Msg("Latest checkpoint failed validation, starting fresh")
	default:
		s.logger.Error().Err(err).Msg("Checkpoint restore failed, starting fresh")
	}
	return models.NewLedger(s.cfg.Trading.Bankroll), nil
}

// execute runs one approved signal through the circuit breaker and the
// engine. A nil return means nothing was settled.
func (s *Session) execute(ctx context.Context, engine *Engine, sig models.Signal) *models.Trade {
	if err := s.breaker.Allow(); err != nil {
		s.logger.Info().Err(err).Str("asset", sig.Asset).Msg("Circuit breaker open, trade blocked")
		return nil
	}

	trade, err := engine.Apply(ctx, sig)
	if err != nil {
		if errors.Is(err, errors.ErrLiveNotImplemented) {
			s.logger.Warn().Str("asset", sig.Asset).Msg("Live execution not implemented, prediction recorded unsettled")
		} else {
			s.logger.Error().Err(err).Str("asset", sig.Asset).Msg("Execution failed")
		}
		return nil
	}

	s.breaker.Record(trade.Result == models.ResultWin)
	logging.LogTrade(s.logger, trade.ID, sig.Asset, string(trade.Result), trade.ProfitLoss, trade.BalanceAfter)
	return trade
}

func (s *Session) persistPrediction(ctx context.Context, sig models.Signal, executed bool) {
	p := &models.Prediction{
		ID:             uuid.New().String(),
		RunID:          s.runID,
		Event:          sig.Event,
		Asset:          sig.Asset,
		Direction:      sig.Direction,
		Pattern:        sig.Pattern,
		Sentiment:      sig.Sentiment,
		SentimentScore: sig.SentimentScore,
		Confidence:     sig.Confidence,
		Mode:           models.Mode(s.cfg.Trading.Mode),
		Executed:       executed,
		Timestamp:      sig.Timestamp,
	}
	err := utils.Retry(ctx, s.retry, func() error {
		return s.gateway.InsertPrediction(ctx, p)
	})
	if err != nil {
		logging.LogPersistFailure(s.logger, "insert_prediction", "predictions", err)
	}
}

func (s *Session) persistTrade(ctx context.Context, trade *models.Trade) {
	err := utils.Retry(ctx, s.retry, func() error {
		return s.gateway.InsertTrade(ctx, trade)
	})
	if err != nil {
		logging.LogPersistFailure(s.logger, "insert_trade", "trades", err)
	}
}

// snapshot persists a checkpoint and reports whether it was written. A
// failed snapshot is logged and the run continues; the trades themselves
// are already persisted.
func (s *Session) snapshot(ctx context.Context, ledger *models.Ledger) bool {
	cp, err := s.manager.Snapshot(ctx, ledger)
	if err != nil {
		s.logger.Error().Err(err).Msg("Checkpoint snapshot failed")
		return false
	}
	logging.LogCheckpoint(s.logger, cp.Sequence, cp.Trades, cp.WinRate, cp.Balance)
	return true
}
