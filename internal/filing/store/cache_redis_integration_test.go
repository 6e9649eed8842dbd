//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probata/internal/filing/store"
	id "probata/pkg/domain"
	"probata/pkg/platform/sentinel"
	"probata/pkg/testutil/containers"
)

func TestSummaryCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	redis := containers.NewRedisContainer(t)
	cache := store.NewSummaryCache(redis.Client, time.Minute)
	ctx := context.Background()

	state := draftState(t)
	summary := store.SummarizeState(state)

	_, err := cache.Get(ctx, state.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, cache.Put(ctx, summary))
	got, err := cache.Get(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Status, got.Status)
	assert.Equal(t, summary.DeceasedName, got.DeceasedName)
	assert.Equal(t, summary.Version, got.Version)

	require.NoError(t, cache.Invalidate(ctx, state.ID))
	_, err = cache.Get(ctx, state.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	var nilCache *store.SummaryCache
	require.NoError(t, nilCache.Put(ctx, summary))
	_, err = nilCache.Get(ctx, id.NewApplicationID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
