// Package dedup guarantees at most one concurrent handler per inbound
// message, using the fast store's atomic set-if-absent primitive so the
// guarantee holds across service instances.
package dedup

import (
	"context"
	"time"

	"github.com/lunahq/attendant/internal/cache"
)

const keyPrefix = "dedup:msg:"

// Gate issues short-lived claims keyed by inbound message identifier.
// Existence of the key is the only signal consulted.
type Gate struct {
	cache *cache.Client
	ttl   time.Duration
}

func New(c *cache.Client, ttl time.Duration) *Gate {
	return &Gate{cache: c, ttl: ttl}
}

// Acquire claims the message for this caller. False means another handler
// already holds the claim and no second reply must be produced. When the
// fast store is down the claim is granted, trading duplicate suppression
// for availability.
func (g *Gate) Acquire(ctx context.Context, messageID string) bool {
	return g.cache.SetIfAbsent(ctx, keyPrefix+messageID, "1", g.ttl)
}

// Release drops the claim once handling completes, shortening the window
// during which a legitimate retry would be suppressed. An unreleased claim
// still self-expires via its TTL.
func (g *Gate) Release(ctx context.Context, messageID string) {
	g.cache.Delete(ctx, keyPrefix+messageID)
}
