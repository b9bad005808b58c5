package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisLimitsRepository keeps the shared limits settings under a single key so
// every customs instance converges on the same values.
type RedisLimitsRepository struct {
	client redis.UniversalClient
	key    string
}

// NewRedisLimitsRepository creates a new RedisLimitsRepository
func NewRedisLimitsRepository(client redis.UniversalClient, key string) *RedisLimitsRepository {
	return &RedisLimitsRepository{client: client, key: key}
}

// Load returns the stored settings as a generic JSON value. The value is not
// validated here; that is the limits holder's job.
func (r *RedisLimitsRepository) Load(ctx context.Context) (any, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrLimitsMissing, err)
	}
	return out, nil
}

// Save stores settings without expiry.
func (r *RedisLimitsRepository) Save(ctx context.Context, settings limits.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode limits: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// Seed stores settings only if no settings exist yet. It reports whether it
// wrote anything.
func (r *RedisLimitsRepository) Seed(ctx context.Context, settings limits.Settings) (bool, error) {
	data, err := json.Marshal(settings)
	if err != nil {
		return false, fmt.Errorf("failed to encode limits: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key, data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return ok, nil
}
