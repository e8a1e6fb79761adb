package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResponseCache(ttl time.Duration, maxSize int) (*ResponseCache, *time.Time) {
	c := NewResponseCache(ttl, maxSize)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestResponseCacheGetSet(t *testing.T) {
	c, _ := newTestResponseCache(5*time.Minute, 10)

	_, ok := c.Get("hello", "")
	assert.False(t, ok)

	c.Set("hello", "hi there!", "")

	reply, ok := c.Get("hello", "")
	require.True(t, ok)
	assert.Equal(t, "hi there!", reply)

	// Keys normalize case and surrounding whitespace
	reply, ok = c.Get("  HELLO  ", "")
	require.True(t, ok)
	assert.Equal(t, "hi there!", reply)
}

func TestResponseCacheIntentInKey(t *testing.T) {
	c, _ := newTestResponseCache(5*time.Minute, 10)

	c.Set("hello", "general reply", "general_conversation")

	_, ok := c.Get("hello", "")
	assert.False(t, ok, "intent-qualified entry must not match intent-less lookup")

	reply, ok := c.Get("hello", "general_conversation")
	require.True(t, ok)
	assert.Equal(t, "general reply", reply)
}

func TestResponseCacheTTL(t *testing.T) {
	c, now := newTestResponseCache(300*time.Second, 10)

	c.Set("hello", "hi", "")

	*now = now.Add(299 * time.Second)
	_, ok := c.Get("hello", "")
	assert.True(t, ok, "entry inside TTL must be retrievable")

	*now = now.Add(2 * time.Second)
	_, ok = c.Get("hello", "")
	assert.False(t, ok, "entry past TTL must be absent")

	// Lazy deletion removed the entry on read
	assert.Equal(t, 0, c.Stats().Size)
}

func TestResponseCacheEviction(t *testing.T) {
	c, now := newTestResponseCache(time.Hour, 2)

	// {"a"@t=0,count=1}, {"b"@t=1,count=5}
	c.Set("a", "ra", "")
	*now = now.Add(time.Second)
	c.Set("b", "rb", "")
	for i := 0; i < 4; i++ {
		_, ok := c.Get("b", "")
		require.True(t, ok)
	}

	*now = now.Add(time.Second)
	c.Set("c", "rc", "")

	_, ok := c.Get("a", "")
	assert.False(t, ok, "lowest (access_count, timestamp) entry must be evicted")
	_, ok = c.Get("b", "")
	assert.True(t, ok)
	_, ok = c.Get("c", "")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestResponseCacheSingleEvictionAtCapacity(t *testing.T) {
	c, now := newTestResponseCache(time.Hour, 5)

	for i, msg := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		*now = now.Add(time.Duration(i) * time.Second)
		c.Set(msg, "reply", "")
	}

	stats := c.Stats()
	assert.Equal(t, 5, stats.Size)
	assert.Equal(t, uint64(1), stats.Evictions)
}

func TestResponseCacheOverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestResponseCache(time.Hour, 2)

	c.Set("a", "ra", "")
	c.Set("b", "rb", "")
	c.Set("a", "ra2", "")

	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, uint64(0), stats.Evictions)
}

func TestResponseCacheClearExpired(t *testing.T) {
	c, now := newTestResponseCache(300*time.Second, 10)

	c.Set("old", "r1", "")
	*now = now.Add(200 * time.Second)
	c.Set("fresh", "r2", "")
	*now = now.Add(150 * time.Second)

	removed := c.ClearExpired()
	assert.Equal(t, 1, removed)

	_, ok := c.Get("old", "")
	assert.False(t, ok)
	_, ok = c.Get("fresh", "")
	assert.True(t, ok)
}

func TestResponseCacheCacheable(t *testing.T) {
	c, _ := newTestResponseCache(time.Minute, 10)

	assert.True(t, c.Cacheable("general_conversation"))
	assert.True(t, c.Cacheable("get_help"))
	assert.True(t, c.Cacheable("get_status"))

	assert.False(t, c.Cacheable("generate_image"))
	assert.False(t, c.Cacheable("submit_feature"))
	assert.False(t, c.Cacheable("action_query"))
	assert.False(t, c.Cacheable("unclear"))
	assert.False(t, c.Cacheable(""))
}

func TestResponseCacheStats(t *testing.T) {
	c, _ := newTestResponseCache(time.Minute, 10)

	c.Set("hello", "hi", "")
	c.Get("hello", "")
	c.Get("hello", "")
	c.Get("unknown", "")

	s := c.Stats()
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
}

func TestResponseCacheClear(t *testing.T) {
	c, _ := newTestResponseCache(time.Minute, 10)

	c.Set("hello", "hi", "")
	c.Get("hello", "")
	c.Clear()

	s := c.Stats()
	assert.Equal(t, 0, s.Size)
	assert.Equal(t, uint64(0), s.Hits)
	assert.Equal(t, uint64(0), s.Misses)
}
