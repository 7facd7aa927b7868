package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"byteGiftAPI/internal/share"
)

// Timestamps are unix milliseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shares (
    share_id    TEXT PRIMARY KEY,
    items       TEXT NOT NULL,
    created_at  INTEGER NOT NULL,
    expires_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_shares_expires_at ON shares(expires_at);
`

// SQLiteStore keeps snapshots in a single-file database for deployments
// without Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec share.Record) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shares (share_id, items, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (share_id) DO NOTHING`,
		rec.ShareID, string(rec.Items), rec.CreatedAt.UnixMilli(), rec.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return share.ErrShareIDTaken
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, shareID string) (share.Record, error) {
	var (
		rec              share.Record
		items            string
		created, expires int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT share_id, items, created_at, expires_at
		FROM shares WHERE share_id = ?`, shareID,
	).Scan(&rec.ShareID, &items, &created, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return share.Record{}, share.ErrNotFound
		}
		return share.Record{}, fmt.Errorf("query share: %w", err)
	}

	rec.Items = []byte(items)
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.ExpiresAt = time.UnixMilli(expires).UTC()
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, shareID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE share_id = ?`, shareID); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, shareID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM shares WHERE share_id = ?)`, shareID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check share id: %w", err)
	}
	return exists, nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE expires_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired shares: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
