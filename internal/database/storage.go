package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/birbparty/birb-baas/sdk"
)

const backendName = "postgres"

// querier is the subset of DB used by PostgresStorage
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PostgresStorage is an sdk.StorageHandler persisting session values as
// jsonb rows keyed by (namespace, key).
type PostgresStorage struct {
	db        querier
	namespace string
	metrics   *telemetry.Metrics
}

var _ sdk.StorageHandler = (*PostgresStorage)(nil)

// NewPostgresStorage creates a storage over db. A nil metrics uses the
// process-wide collectors.
func NewPostgresStorage(db *DB, namespace string, metrics *telemetry.Metrics) *PostgresStorage {
	return newPostgresStorage(db, namespace, metrics)
}

func newPostgresStorage(db querier, namespace string, metrics *telemetry.Metrics) *PostgresStorage {
	if metrics == nil {
		metrics = telemetry.M()
	}
	return &PostgresStorage{db: db, namespace: namespace, metrics: metrics}
}

// Migrate creates the session table if it does not exist.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create session table: %w", err)
	}
	return nil
}

// Factory returns an sdk.StorageHandlerFactory handing out this storage.
func (s *PostgresStorage) Factory() sdk.StorageHandlerFactory {
	return func() sdk.StorageHandler { return s }
}

func (s *PostgresStorage) Get(ctx context.Context, key string) (value interface{}, ok bool, err error) {
	ctx, done := telemetry.TimeStorageOperation(ctx, s.metrics, backendName, OpGet)
	defer func() { done(err) }()

	var raw []byte
	err = s.db.QueryRow(ctx,
		`SELECT value FROM session_entries WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get session entry: %w", err)
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("failed to decode session entry %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts value, bumping the row version on every write.
func (s *PostgresStorage) Set(ctx context.Context, key string, value interface{}) (err error) {
	ctx, done := telemetry.TimeStorageOperation(ctx, s.metrics, backendName, OpSet)
	defer func() { done(err) }()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session entry %q: %w", key, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO session_entries (namespace, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = CURRENT_TIMESTAMP,
			version = session_entries.version + 1
	`, s.namespace, key, json.RawMessage(raw))
	if err != nil {
		return fmt.Errorf("failed to set session entry: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Remove(ctx context.Context, key string) (err error) {
	ctx, done := telemetry.TimeStorageOperation(ctx, s.metrics, backendName, OpRemove)
	defer func() { done(err) }()

	if _, err = s.db.Exec(ctx,
		`DELETE FROM session_entries WHERE namespace = $1 AND key = $2`,
		s.namespace, key,
	); err != nil {
		return fmt.Errorf("failed to remove session entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the storage's namespace.
func (s *PostgresStorage) Clear(ctx context.Context) (err error) {
	ctx, done := telemetry.TimeStorageOperation(ctx, s.metrics, backendName, OpClear)
	defer func() { done(err) }()

	if _, err = s.db.Exec(ctx,
		`DELETE FROM session_entries WHERE namespace = $1`,
		s.namespace,
	); err != nil {
		return fmt.Errorf("failed to clear session entries: %w", err)
	}
	return nil
}
