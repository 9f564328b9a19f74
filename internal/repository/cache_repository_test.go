package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/practicum-api/pkg/errors"
)

func TestCacheRepositoryWithoutRedis(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "assignment:run:p1:latest", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "assignment:run:p1:latest", map[string]string{"id": "run-1"}, time.Minute))

	ok, err := repo.AcquireLock(ctx, "assignment:lock:p1", "run-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.AcquireLock(ctx, "assignment:lock:p1", "run-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, repo.ReleaseLock(ctx, "assignment:lock:p1", "run-1"))
}
