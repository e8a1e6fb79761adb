// Package cache provides the fast-store access layer: a retrying,
// fail-open client over a TTL-capable key-value store, and an in-memory
// content-addressed cache for generated replies.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Store is the minimal surface the fast store must provide. Get returns
// domain.ErrCacheMiss for absent keys. SetNX must be atomic with respect to
// concurrent callers across processes.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Options tunes the retry and alerting behavior of the Client.
type Options struct {
	Attempts       int           // tries per operation, default 3
	Delay          time.Duration // fixed delay between tries, default 1s
	AlertThreshold int64         // consecutive failures before alerting, default 5
}

// Client wraps a Store with bounded retry, fail-open fallbacks, and
// consecutive-failure alerting. It carries no session knowledge: the
// session manager and the deduplication gate consume the same client.
//
// When the store stays down past the retry budget, each operation degrades
// to the default that keeps traffic flowing: Get reports absence, Set and
// Delete report success, SetIfAbsent grants the claim.
type Client struct {
	store    Store
	attempts int
	delay    time.Duration
	alertAt  int64

	// consecutive failed attempts, process-wide; reset on any success
	failures atomic.Int64
}

func NewClient(store Store, opts Options) *Client {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.AlertThreshold <= 0 {
		opts.AlertThreshold = 5
	}
	return &Client{
		store:    store,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		alertAt:  opts.AlertThreshold,
	}
}

// Get returns the value for key, or absence if the key is unknown or the
// store is unreachable.
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	return c.GetWithFallback(ctx, key, nil)
}

// GetWithFallback behaves like Get but invokes fallback once the retry
// budget is exhausted, letting the caller consult a slower source instead
// of accepting absence.
func (c *Client) GetWithFallback(ctx context.Context, key string, fallback func(context.Context) (string, bool)) (string, bool) {
	var value string
	var found bool
	err := c.do(ctx, "get", func(ctx context.Context) error {
		v, err := c.store.Get(ctx, key)
		if err != nil {
			if isMiss(err) {
				value, found = "", false
				return nil
			}
			return err
		}
		value, found = v, true
		return nil
	})
	if err != nil {
		if fallback != nil {
			slog.Warn("fast store get falling back", "key", key)
			return fallback(ctx)
		}
		return "", false
	}
	return value, found
}

// Set stores value under key with a TTL. Failures are absorbed: the fast
// store is a cache of derived facts, never the record of truth.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) {
	_ = c.do(ctx, "set", func(ctx context.Context) error {
		return c.store.Set(ctx, key, value, ttl)
	})
}

// SetIfAbsent atomically claims key. It returns true when this caller won
// the claim, and also when the store is unreachable: the system fails open
// toward availability rather than refusing all traffic while the cache is
// down.
func (c *Client) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) bool {
	claimed := true
	err := c.do(ctx, "setnx", func(ctx context.Context) error {
		ok, err := c.store.SetNX(ctx, key, value, ttl)
		if err != nil {
			return err
		}
		claimed = ok
		return nil
	})
	if err != nil {
		return true
	}
	return claimed
}

// Delete removes key. Failures are absorbed; the entry still self-expires.
func (c *Client) Delete(ctx context.Context, key string) {
	_ = c.do(ctx, "del", func(ctx context.Context) error {
		return c.store.Del(ctx, key)
	})
}

// Exists reports whether key is present, defaulting to false when the
// store is unreachable.
func (c *Client) Exists(ctx context.Context, key string) bool {
	var present bool
	err := c.do(ctx, "exists", func(ctx context.Context) error {
		ok, err := c.store.Exists(ctx, key)
		if err != nil {
			return err
		}
		present = ok
		return nil
	})
	if err != nil {
		return false
	}
	return present
}

// ConsecutiveFailures exposes the current failure streak for observability.
func (c *Client) ConsecutiveFailures() int64 {
	return c.failures.Load()
}

func (c *Client) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err = fn(ctx); err == nil {
			c.failures.Store(0)
			return nil
		}

		n := c.failures.Add(1)
		slog.Error("fast store operation failed",
			"op", op, "attempt", attempt, "error", err)
		if n >= c.alertAt {
			// The alert=true attribute routes this to the paging stream.
			slog.Error("fast store failing persistently",
				"alert", true, "op", op, "consecutive_failures", n)
		}

		if attempt < c.attempts && c.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.delay):
			}
		}
	}
	return err
}
