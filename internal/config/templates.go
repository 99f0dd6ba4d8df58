package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Grail Agent Configuration

[trading]
# Trading mode: "demo" or "live"
mode = "demo"
# Starting virtual balance
bankroll = 1000.0
# Prediction slots per run
predictions = 20
# Execute only signals with confidence strictly above this threshold
confidence_threshold = 0.70

[signal]
# Tradeable asset universe
assets = ["BTC/USDT", "ETH/USDT", "SOL/USDT", "AAPL", "TSLA"]
# Random seed for signal generation; 0 means seed from the clock
seed = 0

[payoff]
# Settlement rule: "odds" (stochastic, pays stake x (odds - 1)) or
# "fixed" (deterministic percentage of stake)
rule = "odds"
# Fixed rule: win when confidence reaches this cutoff
win_cutoff = 0.80
# Fixed rule: win pays this percentage of the stake
win_percent = 5.0
# Fixed rule: loss costs this percentage of the stake
loss_percent = 3.0

[risk]
# Stake per trade as percentage of current balance
stake_percent = 2.0
# Hard cap on a single stake as percentage of current balance
max_stake_percent = 10.0
# Pause trading after this many consecutive losses
max_consecutive_losses = 3
# How long the pause lasts (e.g. "5m", "30s")
cooldown = "5m"
# Halt the run when balance falls below this percentage of the initial bankroll
drawdown_stop_percent = 50.0

[checkpoint]
# Directory for file-based checkpoints
dir = ".checkpoints"
# Snapshot the ledger every N executed trades
interval = 20
# Checkpoint store: "file" or "database"
store = "file"

[database]
# Persistence backend: "sqlite" or "postgres"
backend = "sqlite"
# SQLite database file (sqlite backend); empty means the default under
# ~/.config/grail-agent/
path = ""
# Postgres connection string (postgres backend); DATABASE_URL overrides
dsn = ""
`

// CreateTemplate writes a starting config.toml into configDir and returns
// the path written. Refuses to overwrite an existing config file.
func CreateTemplate(configDir string) (string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}
