package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wayfarer.app/concierge/core/db"
)

// PostgresStore keeps memory entries in a single jsonb table, upserted on
// (namespace, key). Durable across restarts and replicas.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// Migrate creates the memory table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Pool().Exec(ctx, `
		CREATE TABLE IF NOT EXISTS memory_entries (
			namespace  text NOT NULL,
			key        text NOT NULL,
			value      jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, key)
		)`)
	if err != nil {
		return fmt.Errorf("creating memory_entries table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, namespace, key string) (any, bool, error) {
	var data []byte
	err := s.db.Pool().QueryRow(ctx,
		`SELECT value FROM memory_entries WHERE namespace = $1 AND key = $2`,
		namespace, key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select memory entry %s/%s: %w", namespace, key, err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false, fmt.Errorf("decode memory entry %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, namespace, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode memory entry %s/%s: %w", namespace, key, err)
	}

	_, err = s.db.Pool().Exec(ctx, `
		INSERT INTO memory_entries (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`,
		namespace, key, data)
	if err != nil {
		return fmt.Errorf("upsert memory entry %s/%s: %w", namespace, key, err)
	}
	return nil
}
