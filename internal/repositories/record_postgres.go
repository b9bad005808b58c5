package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/customs/internal/database"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/jackc/pgx/v5"
)

// PostgresRecordRepository stores identity records in the customs_records table.
// Expired rows are invisible to Get and removed by DeleteExpired.
type PostgresRecordRepository struct {
	db *database.DB
}

// NewPostgresRecordRepository creates a new PostgresRecordRepository
func NewPostgresRecordRepository(db *database.DB) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

// Get returns the live record stored under key, or models.ErrNotFound.
func (r *PostgresRecordRepository) Get(ctx context.Context, key string) (*models.StoredRecord, error) {
	query := `
		SELECT record FROM customs_records
		WHERE key = $1 AND expires_at > CURRENT_TIMESTAMP
	`

	var data []byte
	err := r.db.Pool.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, database.MapPostgresError(err))
	}
	return decodeRecord(data)
}

// Set upserts the record under key with a fresh expiry.
func (r *PostgresRecordRepository) Set(ctx context.Context, key string, rec *models.StoredRecord, ttl time.Duration) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO customs_records (key, record, expires_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET record = EXCLUDED.record, expires_at = EXCLUDED.expires_at, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.Pool.Exec(ctx, query, key, data, time.Now().Add(ttl)); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, database.MapPostgresError(err))
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed.
func (r *PostgresRecordRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM customs_records WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks that the database is reachable.
func (r *PostgresRecordRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
