// Package config provides configuration management for the trading agent.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"grail-agent/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Trading    TradingConfig    `mapstructure:"trading"`
	Signal     SignalConfig     `mapstructure:"signal"`
	Payoff     PayoffConfig     `mapstructure:"payoff"`
	Risk       RiskConfig       `mapstructure:"risk"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// TradingConfig holds the core run parameters.
type TradingConfig struct {
	Mode                string  `mapstructure:"mode"`       // "demo", "live"
	Bankroll            float64 `mapstructure:"bankroll"`   // starting virtual balance
	Predictions         int     `mapstructure:"predictions"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// SignalConfig holds signal generator configuration.
type SignalConfig struct {
	Assets []string `mapstructure:"assets"`
	Seed   int64    `mapstructure:"seed"` // 0 means time-seeded
}

// PayoffConfig selects and parameterizes the settlement rule.
type PayoffConfig struct {
	Rule        string  `mapstructure:"rule"` // "odds", "fixed"
	WinCutoff   float64 `mapstructure:"win_cutoff"`
	WinPercent  float64 `mapstructure:"win_percent"`
	LossPercent float64 `mapstructure:"loss_percent"`
}

// RiskConfig holds stake sizing and protective limits.
type RiskConfig struct {
	StakePercent         float64       `mapstructure:"stake_percent"`
	MaxStakePercent      float64       `mapstructure:"max_stake_percent"`
	MaxConsecutiveLosses int           `mapstructure:"max_consecutive_losses"`
	Cooldown             time.Duration `mapstructure:"cooldown"`
	DrawdownStopPercent  float64       `mapstructure:"drawdown_stop_percent"`
}

// CheckpointConfig holds checkpoint persistence configuration.
type CheckpointConfig struct {
	Dir      string `mapstructure:"dir"`
	Interval int    `mapstructure:"interval"` // trades between snapshots
	Store    string `mapstructure:"store"`    // "file", "database"
}

// DatabaseConfig holds persistence gateway configuration.
type DatabaseConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite", "postgres"
	Path    string `mapstructure:"path"`    // sqlite file path
	DSN     string `mapstructure:"dsn"`     // postgres connection string
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/grail-agent"
	}
	return filepath.Join(home, ".config", "grail-agent")
}

// DefaultDatabasePath returns the default SQLite database path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "grail.db")
}

// DefaultAssets returns the default tradeable asset universe.
func DefaultAssets() []string {
	return []string{"BTC/USDT", "ETH/USDT", "SOL/USDT", "AAPL", "TSLA"}
}

// Load loads configuration from the specified directory. If configDir is
// empty, the default config directory is used. A missing config file is not
// an error: demo mode runs entirely on defaults, and `grail config init`
// writes a starting template.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config.toml")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config.toml")
	}

	applyEnvOverrides(cfg)

	// An empty sqlite path means the default location.
	if cfg.Database.Path == "" {
		cfg.Database.Path = DefaultDatabasePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "demo")
	v.SetDefault("trading.bankroll", 1000.0)
	v.SetDefault("trading.predictions", 20)
	v.SetDefault("trading.confidence_threshold", 0.70)

	v.SetDefault("signal.assets", DefaultAssets())
	v.SetDefault("signal.seed", 0)

	v.SetDefault("payoff.rule", "odds")
	v.SetDefault("payoff.win_cutoff", 0.80)
	v.SetDefault("payoff.win_percent", 5.0)
	v.SetDefault("payoff.loss_percent", 3.0)

	v.SetDefault("risk.stake_percent", 2.0)
	v.SetDefault("risk.max_stake_percent", 10.0)
	v.SetDefault("risk.max_consecutive_losses", 3)
	v.SetDefault("risk.cooldown", "5m")
	v.SetDefault("risk.drawdown_stop_percent", 50.0)

	v.SetDefault("checkpoint.dir", ".checkpoints")
	v.SetDefault("checkpoint.interval", 20)
	v.SetDefault("checkpoint.store", "file")

	v.SetDefault("database.backend", "sqlite")
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("database.dsn", "")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAIL_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
	if v := os.Getenv("GRAIL_BANKROLL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.Bankroll = f
		}
	}
	if v := os.Getenv("GRAIL_PREDICTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Trading.Predictions = n
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
}

// Validate validates the configuration. Any violation is fatal: the run
// aborts before a single signal is processed.
func (c *Config) Validate() error {
	if c.Trading.Mode != "demo" && c.Trading.Mode != "live" {
		return errors.NewConfigError("trading.mode", c.Trading.Mode, "must be \"demo\" or \"live\"")
	}
	if c.Trading.Bankroll <= 0 {
		return errors.NewConfigError("trading.bankroll", c.Trading.Bankroll, "must be positive")
	}
	if c.Trading.Predictions <= 0 {
		return errors.NewConfigError("trading.predictions", c.Trading.Predictions, "must be positive")
	}
	if c.Trading.ConfidenceThreshold <= 0 || c.Trading.ConfidenceThreshold >= 1 {
		return errors.NewConfigError("trading.confidence_threshold", c.Trading.ConfidenceThreshold, "must be in (0, 1)")
	}

	if len(c.Signal.Assets) == 0 {
		return errors.NewConfigError("signal.assets", c.Signal.Assets, "asset universe must not be empty")
	}

	if c.Payoff.Rule != "odds" && c.Payoff.Rule != "fixed" {
		return errors.NewConfigError("payoff.rule", c.Payoff.Rule, "must be \"odds\" or \"fixed\"")
	}
	if c.Payoff.WinCutoff < 0 || c.Payoff.WinCutoff > 1 {
		return errors.NewConfigError("payoff.win_cutoff", c.Payoff.WinCutoff, "must be in [0, 1]")
	}
	if c.Payoff.WinPercent < 0 {
		return errors.NewConfigError("payoff.win_percent", c.Payoff.WinPercent, "must be non-negative")
	}
	if c.Payoff.LossPercent < 0 {
		return errors.NewConfigError("payoff.loss_percent", c.Payoff.LossPercent, "must be non-negative")
	}

	if c.Risk.StakePercent <= 0 || c.Risk.StakePercent > 100 {
		return errors.NewConfigError("risk.stake_percent", c.Risk.StakePercent, "must be in (0, 100]")
	}
	if c.Risk.MaxStakePercent < c.Risk.StakePercent || c.Risk.MaxStakePercent > 100 {
		return errors.NewConfigError("risk.max_stake_percent", c.Risk.MaxStakePercent, "must be in [stake_percent, 100]")
	}
	if c.Risk.MaxConsecutiveLosses < 1 {
		return errors.NewConfigError("risk.max_consecutive_losses", c.Risk.MaxConsecutiveLosses, "must be at least 1")
	}
	if c.Risk.Cooldown < 0 {
		return errors.NewConfigError("risk.cooldown", c.Risk.Cooldown, "must be non-negative")
	}
	if c.Risk.DrawdownStopPercent <= 0 || c.Risk.DrawdownStopPercent > 100 {
		return errors.NewConfigError("risk.drawdown_stop_percent", c.Risk.DrawdownStopPercent, "must be in (0, 100]")
	}

	if c.Checkpoint.Interval < 1 {
		return errors.NewConfigError("checkpoint.interval", c.Checkpoint.Interval, "must be at least 1")
	}
	if c.Checkpoint.Store != "file" && c.Checkpoint.Store != "database" {
		return errors.NewConfigError("checkpoint.store", c.Checkpoint.Store, "must be \"file\" or \"database\"")
	}

	switch c.Database.Backend {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.NewConfigError("database.path", c.Database.Path, "sqlite backend requires a file path")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.Wrap(errors.ErrMissingDSN, "database.backend is \"postgres\" (set database.dsn or DATABASE_URL)")
		}
	default:
		return errors.NewConfigError("database.backend", c.Database.Backend, "must be \"sqlite\" or \"postgres\"")
	}

	return nil
}

// IsDemoMode returns true if demo trading mode is enabled.
func (c *Config) IsDemoMode() bool {
	return c.Trading.Mode == "demo"
}

// IsLiveMode returns true if live trading mode is enabled.
func (c *Config) IsLiveMode() bool {
	return c.Trading.Mode == "live"
}
