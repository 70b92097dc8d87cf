package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for identity and metadata persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// LoadIdentity returns the stored identity; found is false on first boot.
	LoadIdentity(ctx context.Context) (id Identity, found bool, err error)
	SaveIdentity(ctx context.Context, id Identity) error

	// LoadMetadata returns the stored metadata; found is false on first boot.
	LoadMetadata(ctx context.Context) (meta Metadata, found bool, err error)
	SaveMetadata(ctx context.Context, meta Metadata) error

	// Clear deletes all persisted configuration.
	Clear(ctx context.Context) error
}

// SQLiteRepository implements Repository using SQLite.
// Both tables hold a single row with id 1.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// LoadIdentity reads the identity row.
func (r *SQLiteRepository) LoadIdentity(ctx context.Context) (Identity, bool, error) {
	var id Identity
	err := r.db.QueryRowContext(ctx,
		`SELECT org, dev_type, dev_id, token FROM device_identity WHERE id = 1`,
	).Scan(&id.Org, &id.DeviceType, &id.DeviceID, &id.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, fmt.Errorf("querying identity: %w", err)
	}
	return id, true, nil
}

// SaveIdentity inserts or replaces the identity row.
func (r *SQLiteRepository) SaveIdentity(ctx context.Context, id Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_identity (id, org, dev_type, dev_id, token, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			org = excluded.org,
			dev_type = excluded.dev_type,
			dev_id = excluded.dev_id,
			token = excluded.token,
			updated_at = excluded.updated_at`,
		id.Org, id.DeviceType, id.DeviceID, id.Token, now(),
	)
	if err != nil {
		return fmt.Errorf("saving identity: %w", err)
	}
	return nil
}

// LoadMetadata reads and decodes the metadata row.
func (r *SQLiteRepository) LoadMetadata(ctx context.Context) (Metadata, bool, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM device_metadata WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(body), &meta); err != nil {
		return nil, false, fmt.Errorf("decoding metadata: %w", err)
	}
	if meta == nil {
		meta = Metadata{}
	}
	return meta, true, nil
}

// SaveMetadata encodes and stores the metadata row.
func (r *SQLiteRepository) SaveMetadata(ctx context.Context, meta Metadata) error {
	if meta == nil {
		meta = Metadata{}
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO device_metadata (id, body, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		string(body), now(),
	)
	if err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}
	return nil
}

// Clear deletes the identity and metadata rows in one transaction.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	for _, table := range []string{"device_metadata", "device_identity"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil { //nolint:gosec // Fixed table names
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
