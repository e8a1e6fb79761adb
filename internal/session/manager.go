// Package session owns the conversation session lifecycle. It reconciles
// the fast store's advisory pointers with the durable store of record: the
// pointer is a performance optimization, the durable Session row is the
// truth. Total loss of fast-store state is recovered with one bounded pass
// and no loss of session identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lunahq/attendant/internal/cache"
	"github.com/lunahq/attendant/internal/domain"
)

// DurableStore is the relational store of record for sessions and messages.
// CreateSession must fail with domain.ErrActiveSessionExists when an active
// session for the user already exists; that uniqueness violation is the
// arbiter of concurrent creation races.
type DurableStore interface {
	CreateSession(ctx context.Context, userID string) (*domain.Session, error)
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	ActiveSession(ctx context.Context, userID string) (*domain.Session, error)
	TouchSession(ctx context.Context, id string, increment int) error
	EndSession(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, p domain.NewMessage) (*domain.Message, error)
	History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	ActiveSessions(ctx context.Context) ([]domain.Session, error)
	EndExpiredSessions(ctx context.Context, cutoff time.Time) ([]domain.Session, error)
}

// Options tunes the Manager.
type Options struct {
	Timeout        time.Duration // session inactivity window, default 30m
	MaxContext     int           // messages fed to prompt construction, default 20
	CreateAttempts int           // bounded retry when losing a creation race, default 3
}

// Manager orchestrates session lifecycle: creation, adoption, expiry,
// termination, pruning, and recovery after cache loss. It is the only
// component that mutates Session and Message state, and the only one that
// reads the fast store for session truth.
type Manager struct {
	store DurableStore
	cache *cache.Client

	timeout        time.Duration
	maxContext     int
	createAttempts int

	now func() time.Time
}

func NewManager(store DurableStore, fast *cache.Client, opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.MaxContext <= 0 {
		opts.MaxContext = 20
	}
	if opts.CreateAttempts <= 0 {
		opts.CreateAttempts = 3
	}
	return &Manager{
		store:          store,
		cache:          fast,
		timeout:        opts.Timeout,
		maxContext:     opts.MaxContext,
		createAttempts: opts.CreateAttempts,
		now:            time.Now,
	}
}

func pointerKey(userID string) string   { return "session:user:" + userID }
func recentKey(sessionID string) string { return "session:recent:" + sessionID }

// GetOrCreate resolves the user's active session, consulting the fast
// store first and the durable store second. A pointer is advisory: the
// pointed-to session must still be active and unexpired in the durable
// store before it is returned. Creation races are resolved by adopting the
// winner's session, bounded by the configured retry budget.
func (m *Manager) GetOrCreate(ctx context.Context, userID string) (*domain.Session, error) {
	for attempt := 0; attempt < m.createAttempts; attempt++ {
		if id, ok := m.cache.Get(ctx, pointerKey(userID)); ok {
			s, err := m.store.GetSession(ctx, id)
			if err == nil && s.Status == domain.SessionActive && !s.Expired(m.timeout, m.now()) {
				m.refreshPointer(ctx, s)
				return s, nil
			}
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return nil, fmt.Errorf("confirm session pointer: %w", err)
			}
			// Pointer names an ended, expired, or missing session.
			m.cache.Delete(ctx, pointerKey(userID))
		}

		s, err := m.store.ActiveSession(ctx, userID)
		switch {
		case err == nil:
			if !s.Expired(m.timeout, m.now()) {
				m.refreshPointer(ctx, s)
				return s, nil
			}
			slog.Info("ending expired session", "session_id", s.ID, "user_id", userID)
			if err := m.store.EndSession(ctx, s.ID); err != nil {
				return nil, fmt.Errorf("end expired session: %w", err)
			}
			m.cache.Delete(ctx, recentKey(s.ID))
		case !errors.Is(err, domain.ErrSessionNotFound):
			return nil, fmt.Errorf("find active session: %w", err)
		}

		created, err := m.store.CreateSession(ctx, userID)
		if err == nil {
			slog.Info("created session", "session_id", created.ID, "user_id", userID)
			m.refreshPointer(ctx, created)
			return created, nil
		}
		if !errors.Is(err, domain.ErrActiveSessionExists) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		// Lost the creation race; loop and adopt the winner's session.
	}
	return nil, domain.ErrSessionCreateRace
}

// AddMessage records one message and bumps the session's activity. The
// write is skipped, not failed, when the fast-store pointer names a
// different session or the session is no longer active: that is an
// expected race with concurrent pruning, and a skipped write must never be
// misattributed to the wrong session.
func (m *Manager) AddMessage(ctx context.Context, sessionID, userID, text string, role domain.Role, intent string, confidence float64) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	if ptr, ok := m.cache.Get(ctx, pointerKey(userID)); ok && ptr != sessionID {
		slog.Warn("stale session at write time, skipping message",
			"session_id", sessionID, "pointer", ptr, "user_id", userID)
		return nil
	}

	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			slog.Warn("session missing at write time, skipping message",
				"session_id", sessionID, "user_id", userID)
			return nil
		}
		return fmt.Errorf("confirm session: %w", err)
	}
	if s.Status != domain.SessionActive {
		slog.Warn("session ended at write time, skipping message",
			"session_id", sessionID, "user_id", userID)
		return nil
	}

	msg, err := m.store.CreateMessage(ctx, domain.NewMessage{
		SessionID:  sessionID,
		UserID:     userID,
		Role:       role,
		Content:    text,
		Intent:     intent,
		Confidence: confidence,
	})
	if err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	if err := m.store.TouchSession(ctx, sessionID, 1); err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}

	m.cache.Set(ctx, pointerKey(userID), sessionID, m.timeout)
	m.appendRecent(ctx, sessionID, []domain.Message{*msg}, s.MessageCount)
	return nil
}

// AddExchange records both sides of one exchange, the user message and the
// assistant reply. The two rows are independent and are written
// concurrently, then joined before the single activity update and the one
// recent-tail append. Appending once per exchange keeps the cached tail
// free of lost updates: two appends racing on the same key can each read
// the old tail and overwrite the other's message.
func (m *Manager) AddExchange(ctx context.Context, sessionID, userID, userText, reply, intent string, confidence float64) error {
	if ptr, ok := m.cache.Get(ctx, pointerKey(userID)); ok && ptr != sessionID {
		slog.Warn("stale session at write time, skipping exchange",
			"session_id", sessionID, "pointer", ptr, "user_id", userID)
		return nil
	}

	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			slog.Warn("session missing at write time, skipping exchange",
				"session_id", sessionID, "user_id", userID)
			return nil
		}
		return fmt.Errorf("confirm session: %w", err)
	}
	if s.Status != domain.SessionActive {
		slog.Warn("session ended at write time, skipping exchange",
			"session_id", sessionID, "user_id", userID)
		return nil
	}

	var userMsg, replyMsg *domain.Message
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		msg, err := m.store.CreateMessage(gctx, domain.NewMessage{
			SessionID:  sessionID,
			UserID:     userID,
			Role:       domain.RoleUser,
			Content:    userText,
			Intent:     intent,
			Confidence: confidence,
		})
		if err != nil {
			return err
		}
		userMsg = msg
		return nil
	})
	g.Go(func() error {
		msg, err := m.store.CreateMessage(gctx, domain.NewMessage{
			SessionID: sessionID,
			UserID:    userID,
			Role:      domain.RoleAssistant,
			Content:   reply,
		})
		if err != nil {
			return err
		}
		replyMsg = msg
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("store exchange: %w", err)
	}

	if err := m.store.TouchSession(ctx, sessionID, 2); err != nil {
		return fmt.Errorf("update session activity: %w", err)
	}

	m.cache.Set(ctx, pointerKey(userID), sessionID, m.timeout)
	m.appendRecent(ctx, sessionID, []domain.Message{*userMsg, *replyMsg}, s.MessageCount)
	return nil
}

// Context returns up to max recent messages oldest-first for prompt
// construction. Lookup failures degrade to an empty context rather than
// aborting the exchange.
func (m *Manager) Context(ctx context.Context, sessionID string, max int) []domain.Message {
	if max <= 0 || max > m.maxContext {
		max = m.maxContext
	}

	if cached, ok := m.cache.Get(ctx, recentKey(sessionID)); ok {
		var msgs []domain.Message
		if err := json.Unmarshal([]byte(cached), &msgs); err == nil {
			if len(msgs) > max {
				msgs = msgs[len(msgs)-max:]
			}
			return msgs
		}
		m.cache.Delete(ctx, recentKey(sessionID))
	}

	msgs, err := m.store.History(ctx, sessionID, max)
	if err != nil {
		slog.Warn("context lookup failed, continuing without history",
			"session_id", sessionID, "error", err)
		return nil
	}
	return msgs
}

// ShouldCreateNew reports whether the user's next message warrants a fresh
// session: no active session, or the active one has been idle past the
// timeout. Missing timestamps count as expired.
func (m *Manager) ShouldCreateNew(ctx context.Context, userID string) bool {
	s, err := m.store.ActiveSession(ctx, userID)
	if err != nil {
		return true
	}
	return s.Expired(m.timeout, m.now())
}

// End durably ends a session and removes its fast-store state.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	s, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := m.store.EndSession(ctx, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.cache.Delete(ctx, pointerKey(s.UserID))
	m.cache.Delete(ctx, recentKey(sessionID))
	slog.Info("ended session", "session_id", sessionID, "user_id", s.UserID)
	return nil
}

// EndForUser ends the user's active session if one exists and reports
// whether it did.
func (m *Manager) EndForUser(ctx context.Context, userID string) (bool, error) {
	s, err := m.store.ActiveSession(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find active session: %w", err)
	}
	if err := m.End(ctx, s.ID); err != nil {
		return false, err
	}
	return true, nil
}

// PruneExpired ends every active session idle past the timeout and clears
// each one's fast-store state, returning the count ended. Safe to run
// concurrently with traffic: a pruned session only causes in-flight writes
// to be skipped by the stale-session guard, never corrupted.
func (m *Manager) PruneExpired(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.timeout)
	ended, err := m.store.EndExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	for _, s := range ended {
		m.cache.Delete(ctx, pointerKey(s.UserID))
		m.cache.Delete(ctx, recentKey(s.ID))
	}
	if len(ended) > 0 {
		slog.Info("pruned expired sessions", "count", len(ended))
	}
	return len(ended), nil
}

// RecoverCacheState repopulates pointers and recent-message caches for all
// active durable sessions. Run at startup or after a detected cache flush;
// this pass is what makes the fast store purely a performance layer.
func (m *Manager) RecoverCacheState(ctx context.Context) error {
	sessions, err := m.store.ActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}

	for i := range sessions {
		s := &sessions[i]
		m.refreshPointer(ctx, s)

		msgs, err := m.store.History(ctx, s.ID, m.maxContext)
		if err != nil {
			slog.Warn("recovery: history unavailable", "session_id", s.ID, "error", err)
			continue
		}
		if data, err := json.Marshal(msgs); err == nil {
			m.cache.Set(ctx, recentKey(s.ID), string(data), m.timeout)
		}
	}

	slog.Info("recovered fast-store state", "sessions", len(sessions))
	return nil
}

func (m *Manager) refreshPointer(ctx context.Context, s *domain.Session) {
	m.cache.Set(ctx, pointerKey(s.UserID), s.ID, m.timeout)
}

// appendRecent maintains the recent-message cache alongside the durable
// write so prompt construction can avoid a database round-trip. When the
// cache entry is gone but the session already has history (a flushed fast
// store), the entry is left absent instead of being seeded with a partial
// tail; reads fall through to the durable store until recovery rebuilds it.
func (m *Manager) appendRecent(ctx context.Context, sessionID string, msgs []domain.Message, priorCount int) {
	var tail []domain.Message
	cached, ok := m.cache.Get(ctx, recentKey(sessionID))
	if ok {
		if err := json.Unmarshal([]byte(cached), &tail); err != nil {
			tail = nil
		}
	} else if priorCount > 0 {
		return
	}
	tail = append(tail, msgs...)
	if len(tail) > m.maxContext {
		tail = tail[len(tail)-m.maxContext:]
	}
	if data, err := json.Marshal(tail); err == nil {
		m.cache.Set(ctx, recentKey(sessionID), string(data), m.timeout)
	}
}
