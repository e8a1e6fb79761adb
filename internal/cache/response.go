package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Intents whose replies are personalized or trigger actions; caching them
// would replay side effects or leak one user's answer to another.
var nonCacheableIntents = map[string]struct{}{
	"generate_image": {},
	"submit_feature": {},
	"action_query":   {},
	"unclear":        {},
}

type responseEntry struct {
	reply       string
	createdAt   time.Time
	accessCount int
}

// ResponseCache is a content-addressed cache of generated replies, keyed by
// the normalized message text plus an optional intent. Entries expire after
// a TTL and are evicted least-accessed-then-oldest once the cache is full.
//
// The mutex guards only in-memory state; it is never held across I/O.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]*responseEntry

	ttl     time.Duration
	maxSize int

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

func NewResponseCache(ttl time.Duration, maxSize int) *ResponseCache {
	return &ResponseCache{
		entries: make(map[string]*responseEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the cached reply for a message, deleting the entry lazily if
// it has outlived the TTL.
func (c *ResponseCache) Get(message, intent string) (string, bool) {
	key := cacheKey(message, intent)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}

	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return "", false
	}

	e.accessCount++
	c.hits++
	return e.reply, true
}

// Set stores a reply, evicting the least-accessed-then-oldest entry first
// when the cache is at capacity.
func (c *ResponseCache) Set(message, reply, intent string) {
	key := cacheKey(message, intent)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	c.entries[key] = &responseEntry{
		reply:       reply,
		createdAt:   c.now(),
		accessCount: 1,
	}
}

// evictLRU removes the entry with the lowest (accessCount, createdAt) pair.
// Caller holds the mutex.
func (c *ResponseCache) evictLRU() {
	var victim string
	var victimEntry *responseEntry
	for key, e := range c.entries {
		if victimEntry == nil ||
			e.accessCount < victimEntry.accessCount ||
			(e.accessCount == victimEntry.accessCount && e.createdAt.Before(victimEntry.createdAt)) {
			victim, victimEntry = key, e
		}
	}
	if victimEntry != nil {
		delete(c.entries, victim)
		c.evictions++
	}
}

// ClearExpired proactively removes entries past the TTL so memory stays
// bounded independent of read traffic. Returns the number removed.
func (c *ResponseCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops all entries and resets the counters.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*responseEntry)
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Cacheable reports whether replies for an intent may be reused verbatim.
// Unclassified messages are treated as non-cacheable.
func (c *ResponseCache) Cacheable(intent string) bool {
	if intent == "" {
		return false
	}
	_, denied := nonCacheableIntents[intent]
	return !denied
}

func (c *ResponseCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func cacheKey(message, intent string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	base := normalized
	if intent != "" {
		base = intent + ":" + normalized
	}
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}
