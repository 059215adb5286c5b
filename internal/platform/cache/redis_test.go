package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"post-discharge-assistant/internal/metrics"
)

func newTestCache(t *testing.T, ttl time.Duration) (*EmbeddingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewEmbeddingCache(Options{Addr: mr.Addr(), TTL: ttl})
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestEmbeddingCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	hits := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit"))
	vec := []float32{0.25, -1, 3.5}
	require.NoError(t, c.Set(ctx, "all-mpnet-base-v2", "Can I eat bananas?", vec))
	assert.True(t, mr.Exists(Key("all-mpnet-base-v2", "Can I eat bananas?")))

	got, ok, err := c.Get(ctx, "all-mpnet-base-v2", "Can I eat bananas?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, vec, got)
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("hit")))

	_, ok, err = c.Get(ctx, "other-model", "Can I eat bananas?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbeddingCacheMiss(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	misses := testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("miss"))

	got, ok, err := c.Get(context.Background(), "m", "never stored")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, misses+1, testutil.ToFloat64(metrics.EmbeddingCacheTotal.WithLabelValues("miss")))
}

func TestEmbeddingCacheCorruptPayload(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	require.NoError(t, mr.Set(Key("m", "q"), "abcde"))

	_, ok, err := c.Get(context.Background(), "m", "q")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestEmbeddingCacheExpires(t *testing.T) {
	c, mr := newTestCache(t, 10*time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "m", "q", []float32{1}))
	assert.Equal(t, 10*time.Minute, mr.TTL(Key("m", "q")))

	mr.FastForward(11 * time.Minute)

	_, ok, err := c.Get(ctx, "m", "q")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbeddingCacheServerDown(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	mr.Close()

	_, ok, err := c.Get(context.Background(), "m", "q")
	assert.Error(t, err)
	assert.False(t, ok)
}
