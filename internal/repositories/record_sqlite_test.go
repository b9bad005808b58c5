package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/customs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteRecordRepository {
	t.Helper()

	repo, err := OpenSQLiteRecordRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRecordRepository_SetGet(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "k")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, repo.Set(ctx, "k", &models.StoredRecord{BlockedAt: 99, OtpSends: []int64{5}}, time.Minute))
	require.NoError(t, repo.Set(ctx, "k", &models.StoredRecord{BlockedAt: 100}, time.Minute))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.BlockedAt)
	assert.Empty(t, got.OtpSends)
	assert.NoError(t, repo.Ping(ctx))
}

func TestSQLiteRecordRepository_Expiry(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Set(ctx, "short", &models.StoredRecord{}, time.Minute))
	require.NoError(t, repo.Set(ctx, "long", &models.StoredRecord{}, time.Hour))

	now = now.Add(2 * time.Minute)

	_, err := repo.Get(ctx, "short")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, "long")
	assert.NoError(t, err)
}
