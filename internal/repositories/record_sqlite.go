package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/customs/internal/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS customs_records (
	key        TEXT PRIMARY KEY,
	record     BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_customs_records_expires_at ON customs_records (expires_at);
`

// SQLiteRecordRepository stores identity records in an embedded SQLite file.
// It suits single-node deployments and local development.
type SQLiteRecordRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteRecordRepository opens (or creates) the database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLiteRecordRepository(ctx context.Context, path string) (*SQLiteRecordRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create sqlite schema: %w", err)
	}

	return &SQLiteRecordRepository{db: db, now: time.Now}, nil
}

// Get returns the live record stored under key, or models.ErrNotFound.
func (r *SQLiteRecordRepository) Get(ctx context.Context, key string) (*models.StoredRecord, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT record FROM customs_records WHERE key = ? AND expires_at > ?`,
		key, r.now().UnixMilli(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return decodeRecord(data)
}

// Set upserts the record under key with a fresh expiry.
func (r *SQLiteRecordRepository) Set(ctx context.Context, key string, rec *models.StoredRecord, ttl time.Duration) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO customs_records (key, record, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET record = excluded.record, expires_at = excluded.expires_at`,
		key, data, r.now().Add(ttl).UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed.
func (r *SQLiteRecordRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customs_records WHERE expires_at <= ?`, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks that the database file is usable.
func (r *SQLiteRecordRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteRecordRepository) Close() error {
	return r.db.Close()
}
