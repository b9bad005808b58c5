package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisRecordRepository stores identity records as JSON strings with a TTL.
type RedisRecordRepository struct {
	client redis.UniversalClient
}

// NewRedisRecordRepository creates a new RedisRecordRepository
func NewRedisRecordRepository(client redis.UniversalClient) *RedisRecordRepository {
	return &RedisRecordRepository{client: client}
}

// Get returns the record stored under key, or models.ErrNotFound.
func (r *RedisRecordRepository) Get(ctx context.Context, key string) (*models.StoredRecord, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return decodeRecord(data)
}

// Set writes the record under key, replacing any previous value.
func (r *RedisRecordRepository) Set(ctx context.Context, key string, rec *models.StoredRecord, ttl time.Duration) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (r *RedisRecordRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}
