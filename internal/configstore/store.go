package configstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// PublishIntervalKey is the metadata key holding the heartbeat period in milliseconds.
const PublishIntervalKey = "pubInterval"

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store holds the device identity and metadata.
type Store struct {
	repo   Repository
	logger Logger

	// seed is used on first boot, when the repository is empty.
	seedIdentity Identity
	seedMetadata Metadata

	identity    Identity
	metadata    Metadata
	pubInterval time.Duration
}

// New creates a store over repo. seed and seedMeta provision the device the
// first time it boots with an empty repository.
func New(repo Repository, seed Identity, seedMeta Metadata) *Store {
	return &Store{
		repo:         repo,
		logger:       noopLogger{},
		seedIdentity: seed,
		seedMetadata: seedMeta.Clone(),
		metadata:     Metadata{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load reads the persisted identity and metadata, seeding and persisting
// them on first boot, then derives the publish interval.
//
// Returns:
//   - error: ErrNotProvisioned if no identity exists anywhere, or a
//     repository error
func (s *Store) Load(ctx context.Context) error {
	id, found, err := s.repo.LoadIdentity(ctx)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}
	if !found {
		if !s.seedIdentity.Complete() {
			return ErrNotProvisioned
		}
		id = s.seedIdentity
		if err := s.repo.SaveIdentity(ctx, id); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistFailed, err)
		}
		s.logger.Info("device provisioned from configuration", "client_id", id.ClientID())
	}

	meta, found, err := s.repo.LoadMetadata(ctx)
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}
	if !found {
		meta = s.seedMetadata.Clone()
		if err := s.repo.SaveMetadata(ctx, meta); err != nil {
			s.logger.Warn("seed metadata not persisted", "error", err)
		}
	}

	s.identity = id
	s.metadata = meta
	s.DerivePublishInterval()
	return nil
}

// Identity returns the device identity.
func (s *Store) Identity() Identity {
	return s.identity
}

// Metadata returns a copy of the current metadata.
func (s *Store) Metadata() Metadata {
	return s.metadata.Clone()
}

// MergeMetadata replaces the metadata with value, which must be a JSON
// object or null, and persists it. The replacement is wholesale: no key of
// the previous metadata survives, and null leaves an empty object.
//
// When persisting fails the in-memory metadata is still replaced and an
// error wrapping ErrPersistFailed is returned. The publish interval is not
// touched; callers re-derive it once their update is complete.
func (s *Store) MergeMetadata(ctx context.Context, value any) error {
	meta, err := asMetadata(value)
	if err != nil {
		return err
	}

	s.metadata = meta
	if err := s.repo.SaveMetadata(ctx, meta); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return nil
}

// ReadAll returns the full configuration including the auth token.
func (s *Store) ReadAll() Snapshot {
	return Snapshot{
		Org:        s.identity.Org,
		DeviceType: s.identity.DeviceType,
		DeviceID:   s.identity.DeviceID,
		Token:      s.identity.Token,
		Meta:       s.metadata.Clone(),
	}
}

// ReadMasked returns the configuration with the auth token replaced by
// MaskedToken. It is for reporting only.
func (s *Store) ReadMasked() Snapshot {
	snap := s.ReadAll()
	snap.Token = MaskedToken
	return snap
}

// DerivePublishInterval reads pubInterval (milliseconds) from the metadata.
// An absent or non-numeric value leaves the previous interval unchanged.
func (s *Store) DerivePublishInterval() {
	raw, ok := s.metadata[PublishIntervalKey]
	if !ok {
		return
	}

	ms, ok := toMillis(raw)
	if !ok {
		s.logger.Warn("ignoring non-numeric publish interval", "value", raw)
		return
	}
	s.pubInterval = time.Duration(ms) * time.Millisecond
}

// PublishInterval returns the last derived heartbeat period.
// Zero or negative means the heartbeat is disabled.
func (s *Store) PublishInterval() time.Duration {
	return s.pubInterval
}

// Reset deletes all persisted configuration (factory reset). The in-memory
// values are left alone; the device is expected to restart right after.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	s.logger.Warn("persisted configuration cleared")
	return nil
}

func toMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true //nolint:gosec // Intervals never approach the overflow range
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}
