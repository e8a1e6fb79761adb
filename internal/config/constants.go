package config

import "time"

const (
	// AI request timeout
	RequestTimeout = 60 * time.Second

	// Background sweep intervals
	CacheCleanupInterval = 5 * time.Minute
	SessionPruneInterval = 5 * time.Minute

	// Bounded retry when losing a session-creation race
	SessionCreateAttempts = 3

	// Cap on user message length forwarded to the completion service
	MaxInboundMessageLen = 2000
)
