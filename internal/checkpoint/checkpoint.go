// Package checkpoint snapshots the trading ledger into immutable,
// sequenced records and rebuilds ledger state from them. Each scheduled
// run is an ephemeral process, so everything a run resumes comes from
// the latest durable checkpoint read back through this package.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"grail-agent/internal/errors"
	"grail-agent/internal/models"
)

// State represents the manager's position in the snapshot cycle.
type State string

const (
	StateIdle         State = "IDLE"         // No snapshot taken yet
	StateSnapshotting State = "SNAPSHOTTING" // Building the next snapshot
	StatePersisted    State = "PERSISTED"    // Last snapshot durably written
)

// Manager assigns sequence numbers, persists snapshots append-only, and
// reconstructs ledgers from stored checkpoints. Sequence numbers are
// strictly increasing and never reused; a failed write leaves the chain
// unchanged.
type Manager struct {
	store Store

	mu      sync.Mutex
	state   State
	lastSeq uint64
}

// NewManager seeds the sequence chain from the store's latest checkpoint.
// An empty store starts the chain at sequence 1.
func NewManager(ctx context.Context, store Store) (*Manager, error) {
	m := &Manager{store: store, state: StateIdle}

	latest, err := store.Latest(ctx)
	switch {
	case err == nil:
		m.lastSeq = latest.Sequence
	case errors.Is(err, errors.ErrCheckpointNotFound):
		// Nothing stored yet.
	default:
		return nil, fmt.Errorf("failed to read latest checkpoint: %w", err)
	}
	return m, nil
}

// State returns the manager's current snapshot-cycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastSequence returns the highest sequence number durably written.
func (m *Manager) LastSequence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSeq
}

// Snapshot copies the ledger into the next checkpoint in the chain and
// persists it. The checkpoint shares no state with the ledger, and the
// sequence number advances only after a successful write.
func (m *Manager) Snapshot(ctx context.Context, ledger *models.Ledger) (*models.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateSnapshotting
	cp := ledger.Snapshot(m.lastSeq+1, time.Now().UTC())
	if err := m.store.Save(ctx, cp); err != nil {
		m.state = StateIdle
		return nil, fmt.Errorf("failed to persist checkpoint %d: %w", cp.Sequence, err)
	}
	m.lastSeq = cp.Sequence
	m.state = StatePersisted
	return cp, nil
}

// Restore loads one checkpoint by sequence number, validates it, and
// rebuilds a ledger from it. The result replaces in-memory state
// entirely; there is no merging.
func (m *Manager) Restore(ctx context.Context, seq uint64) (*models.Ledger, error) {
	cp, err := m.store.Load(ctx, seq)
	if err != nil {
		return nil, err
	}
	return m.rebuild(cp)
}

// RestoreLatest rebuilds a ledger from the newest stored checkpoint.
// An empty store returns ErrCheckpointNotFound so the caller can start
// from a fresh ledger instead.
func (m *Manager) RestoreLatest(ctx context.Context) (*models.Ledger, error) {
	cp, err := m.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return m.rebuild(cp)
}

func (m *Manager) rebuild(cp *models.Checkpoint) (*models.Ledger, error) {
	if !m.Validate(cp) {
		var seq uint64
		if cp != nil {
			seq = cp.Sequence
		}
		return nil, errors.Wrapf(errors.ErrCheckpointInvalid, "checkpoint %d failed validation", seq)
	}
	return models.LedgerFromCheckpoint(cp), nil
}

// Validate reports whether a checkpoint is structurally sound: fields
// present and finite, win rates within [0, 1], non-negative counts and
// balance, and a sequence number that fits the historical chain (1
// through lastSeq+1). It never panics, and calling it twice on the same
// checkpoint yields the same answer.
func (m *Manager) Validate(cp *models.Checkpoint) bool {
	if cp == nil {
		return false
	}

	m.mu.Lock()
	last := m.lastSeq
	m.mu.Unlock()
	if cp.Sequence < 1 || cp.Sequence > last+1 {
		return false
	}

	if cp.Timestamp.IsZero() {
		return false
	}
	if !finite(cp.WinRate) || !finite(cp.TotalPnL) || !finite(cp.Balance) {
		return false
	}
	if cp.WinRate < 0 || cp.WinRate > 1 {
		return false
	}
	if cp.Trades < 0 || cp.Balance < 0 {
		return false
	}
	if cp.Patterns == nil {
		return false
	}
	for _, p := range cp.Patterns {
		if p.Trades < 0 || !finite(p.WinRate) || p.WinRate < 0 || p.WinRate > 1 {
			return false
		}
	}
	return true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// requiredFields is the exact persisted checkpoint shape. External
// tooling reads these names, so they never change.
var requiredFields = []string{"checkpoint", "timestamp", "win_rate", "total_pnl", "trades", "balance", "patterns"}

// Decode parses checkpoint JSON strictly: every wire field must be
// present. Missing or malformed fields come back as ErrCheckpointInvalid
// so callers can fall back to a fresh ledger.
func Decode(data []byte) (*models.Checkpoint, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCheckpointInvalid, "not a JSON object")
	}
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return nil, errors.Wrapf(errors.ErrCheckpointInvalid, "missing field %q", field)
		}
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrapf(errors.ErrCheckpointInvalid, "malformed checkpoint: %v", err)
	}
	return &cp, nil
}
