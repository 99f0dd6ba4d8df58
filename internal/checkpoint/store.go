package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"grail-agent/internal/config"
	"grail-agent/internal/errors"
	"grail-agent/internal/models"
	"grail-agent/internal/store"
)

// Store is the append-only, uniquely-sequenced snapshot store behind the
// Manager. Save of an already-stored sequence number is an error; records
// are never overwritten.
type Store interface {
	Save(ctx context.Context, cp *models.Checkpoint) error
	Load(ctx context.Context, seq uint64) (*models.Checkpoint, error)
	Latest(ctx context.Context) (*models.Checkpoint, error)
	List(ctx context.Context) ([]uint64, error)
}

// NewStore builds the checkpoint store selected by config: one JSON file
// per checkpoint, or rows in the persistence gateway's database.
func NewStore(cfg config.CheckpointConfig, gw store.Gateway) (Store, error) {
	switch cfg.Store {
	case "file":
		return NewFileStore(cfg.Dir), nil
	case "database":
		return NewGatewayStore(gw), nil
	default:
		return nil, errors.Wrapf(errors.ErrConfigInvalid, "unknown checkpoint store %q", cfg.Store)
	}
}

const filePrefix = "checkpoint_"

// FileStore keeps one checkpoint_<sequence>.json file per snapshot under
// a single directory. Writes go through a temp file and rename so a
// crashed run never leaves a half-written checkpoint behind.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is
// created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(seq uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%d.json", filePrefix, seq))
}

// Save writes one checkpoint file. An existing sequence number is
// rejected with ErrCheckpointDuplicate.
func (s *FileStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}

	path := s.path(cp.Sequence)
	if _, err := os.Stat(path); err == nil {
		return errors.Wrapf(errors.ErrCheckpointDuplicate, "sequence %d", cp.Sequence)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize checkpoint: %w", err)
	}
	return nil
}

// Load reads and strictly decodes one checkpoint file.
func (s *FileStore) Load(ctx context.Context, seq uint64) (*models.Checkpoint, error) {
	data, err := os.ReadFile(s.path(seq))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(errors.ErrCheckpointNotFound, "sequence %d", seq)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %d: %w", seq, err)
	}
	return Decode(data)
}

// Latest loads the checkpoint with the highest sequence number.
func (s *FileStore) Latest(ctx context.Context) (*models.Checkpoint, error) {
	seqs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(seqs) == 0 {
		return nil, errors.ErrCheckpointNotFound
	}
	return s.Load(ctx, seqs[len(seqs)-1])
}

// List returns all stored sequence numbers in ascending order. A missing
// directory is an empty store, not an error.
func (s *FileStore) List(ctx context.Context) ([]uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint dir: %w", err)
	}

	var seqs []uint64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json")
		seq, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}

// GatewayStore stores checkpoints as rows in the persistence gateway's
// database, next to the predictions and trades they summarize.
type GatewayStore struct {
	gw store.Gateway
}

// NewGatewayStore wraps a persistence gateway as a checkpoint store.
func NewGatewayStore(gw store.Gateway) *GatewayStore {
	return &GatewayStore{gw: gw}
}

func (s *GatewayStore) Save(ctx context.Context, cp *models.Checkpoint) error {
	return s.gw.SaveCheckpoint(ctx, cp)
}

func (s *GatewayStore) Load(ctx context.Context, seq uint64) (*models.Checkpoint, error) {
	return s.gw.CheckpointBySequence(ctx, seq)
}

func (s *GatewayStore) Latest(ctx context.Context) (*models.Checkpoint, error) {
	return s.gw.LatestCheckpoint(ctx)
}

func (s *GatewayStore) List(ctx context.Context) ([]uint64, error) {
	return s.gw.CheckpointSequences(ctx)
}
