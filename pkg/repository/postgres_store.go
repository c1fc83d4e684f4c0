package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"homepage/pkg/models"
)

type postgresStore struct {
	db  *sql.DB
	key string
}

// NewPostgresStore keeps the board in the kv_store row identified by key.
// The store owns db and closes it on Close.
func NewPostgresStore(db *sql.DB, key string) PostStore {
	return &postgresStore{db: db, key: key}
}

func (s *postgresStore) ReadAll(ctx context.Context) ([]models.Post, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return make([]models.Post, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.key, err)
	}
	return decodePosts("postgres:"+s.key, []byte(value)), nil
}

func (s *postgresStore) WriteAll(ctx context.Context, posts []models.Post) error {
	data, err := encodePosts(posts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, version)
		VALUES ($1, $2, 1)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, version = kv_store.version + 1, updated_at = now()
	`, s.key, string(data))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", s.key, err)
	}
	return nil
}

func (s *postgresStore) Mutate(ctx context.Context, fn MutateFunc) ([]models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The row has to exist before FOR UPDATE can lock it.
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, version)
		VALUES ($1, '[]', 0)
		ON CONFLICT (key) DO NOTHING
	`, s.key); err != nil {
		return nil, fmt.Errorf("seed %s: %w", s.key, err)
	}

	var value string
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1 FOR UPDATE`, s.key,
	).Scan(&value); err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.key, err)
	}

	next, err := fn(decodePosts("postgres:"+s.key, []byte(value)))
	if err != nil {
		return nil, err
	}
	data, err := encodePosts(next)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE kv_store SET value = $2, version = version + 1, updated_at = now()
		WHERE key = $1
	`, s.key, string(data)); err != nil {
		return nil, fmt.Errorf("update %s: %w", s.key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
