package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/compliance"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *SummaryCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewSummaryCache(client, time.Minute, zap.NewNop())
}

func TestSummaryCache_RoundTrip(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetSummary(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, ok)

	summary := &compliance.Summary{
		TotalEmployees:        4,
		CompliantEmployees:    3,
		NonCompliantEmployees: 1,
		EmployeesWithMissing:  1,
		OverallComplianceRate: 75,
	}
	require.NoError(t, cache.SetSummary(ctx, "org-1", summary))

	got, ok, err := cache.GetSummary(ctx, "org-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary, got)
	assert.Equal(t, time.Minute, mr.TTL(summaryKeyPrefix+"org-1"))
}

func TestSummaryCache_Invalidate(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSummary(ctx, "org-1", &compliance.Summary{TotalEmployees: 1}))
	require.NoError(t, cache.SetSummary(ctx, "org-2", &compliance.Summary{TotalEmployees: 2}))

	require.NoError(t, cache.Invalidate(ctx, "org-1"))

	assert.False(t, mr.Exists(summaryKeyPrefix+"org-1"))
	assert.True(t, mr.Exists(summaryKeyPrefix+"org-2"))
}

func TestSummaryCache_ExpiresAfterTTL(t *testing.T) {
	mr, cache := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetSummary(ctx, "org-1", &compliance.Summary{TotalEmployees: 1}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.GetSummary(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_MalformedEntryIsMiss(t *testing.T) {
	mr, cache := setupCache(t)

	require.NoError(t, mr.Set(summaryKeyPrefix+"org-1", "{not json"))

	_, ok, err := cache.GetSummary(context.Background(), "org-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_ConnectionError(t *testing.T) {
	mr, cache := setupCache(t)
	mr.Close()

	_, _, err := cache.GetSummary(context.Background(), "org-1")
	assert.Error(t, err)
}
