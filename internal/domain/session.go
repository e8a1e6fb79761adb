package domain

import (
	"time"
)

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session is one bounded conversation between a user and the assistant.
// At most one session per user is active at any instant; the durable store
// enforces this with a partial unique index.
type Session struct {
	ID           string
	UserID       string
	Status       SessionStatus
	MessageCount int
	StartedAt    time.Time
	LastActive   time.Time
}

// Expired reports whether the session has been inactive for at least the
// timeout window. A missing last-active timestamp counts as expired so a
// fresh context is preferred over a stale one.
func (s *Session) Expired(timeout time.Duration, now time.Time) bool {
	if s.LastActive.IsZero() {
		return true
	}
	return now.Sub(s.LastActive) >= timeout
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable entry in a session's history, ordered by
// creation time ascending.
type Message struct {
	ID         int64
	SessionID  string
	UserID     string
	Role       Role
	Content    string
	Intent     string  // empty when not classified
	Confidence float64 // meaningful only when Intent is set
	CreatedAt  time.Time
}

// NewMessage carries the caller-supplied fields of a message about to be
// written; the durable store assigns ID and CreatedAt.
type NewMessage struct {
	SessionID  string
	UserID     string
	Role       Role
	Content    string
	Intent     string
	Confidence float64
}
