// Package storage provides the database-backed snapshot stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"byteGiftAPI/internal/share"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS shares (
    share_id    TEXT PRIMARY KEY,
    items       JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shares_expires_at ON shares(expires_at);
`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply shares schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, rec share.Record) error {
	query := `
		INSERT INTO shares (share_id, items, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (share_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, query, rec.ShareID, string(rec.Items), rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert share: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return share.ErrShareIDTaken
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, shareID string) (share.Record, error) {
	query := `
		SELECT share_id, items, created_at, expires_at
		FROM shares
		WHERE share_id = $1
	`
	var (
		rec   share.Record
		items []byte
	)
	err := s.db.QueryRow(ctx, query, shareID).Scan(&rec.ShareID, &items, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return share.Record{}, share.ErrNotFound
		}
		return share.Record{}, fmt.Errorf("failed to fetch share: %w", err)
	}
	rec.Items = items
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, shareID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM shares WHERE share_id = $1`, shareID); err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, shareID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM shares WHERE share_id = $1)`, shareID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check share id: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM shares WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired shares: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
