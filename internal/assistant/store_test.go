package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lunahq/attendant/internal/domain"
)

// sessionStore is an in-memory session.DurableStore for orchestrator tests.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	messages map[string][]domain.Message
	nextID   int

	createDelay time.Duration
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*domain.Session),
		messages: make(map[string][]domain.Message),
	}
}

func (f *sessionStore) activeFor(userID string) *domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == domain.SessionActive {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (f *sessionStore) history(sessionID string) []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Message, len(f.messages[sessionID]))
	copy(out, f.messages[sessionID])
	return out
}

func (f *sessionStore) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.Status == domain.SessionActive {
			return nil, domain.ErrActiveSessionExists
		}
	}
	f.nextID++
	s := &domain.Session{
		ID:         fmt.Sprintf("sess-%d", f.nextID),
		UserID:     userID,
		Status:     domain.SessionActive,
		StartedAt:  time.Now(),
		LastActive: time.Now(),
	}
	f.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (f *sessionStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *sessionStore) ActiveSession(ctx context.Context, userID string) (*domain.Session, error) {
	if s := f.activeFor(userID); s != nil {
		return s, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (f *sessionStore) TouchSession(ctx context.Context, id string, increment int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.MessageCount += increment
	s.LastActive = time.Now()
	return nil
}

func (f *sessionStore) EndSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Status = domain.SessionEnded
	return nil
}

func (f *sessionStore) CreateMessage(ctx context.Context, p domain.NewMessage) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := domain.Message{
		ID:         int64(len(f.messages[p.SessionID]) + 1),
		SessionID:  p.SessionID,
		UserID:     p.UserID,
		Role:       p.Role,
		Content:    p.Content,
		Intent:     p.Intent,
		Confidence: p.Confidence,
		CreatedAt:  time.Now(),
	}
	f.messages[p.SessionID] = append(f.messages[p.SessionID], msg)
	return &msg, nil
}

func (f *sessionStore) History(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *sessionStore) ActiveSessions(ctx context.Context) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.sessions {
		if s.Status == domain.SessionActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *sessionStore) EndExpiredSessions(ctx context.Context, cutoff time.Time) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ended []domain.Session
	for _, s := range f.sessions {
		if s.Status == domain.SessionActive && !s.LastActive.After(cutoff) {
			s.Status = domain.SessionEnded
			ended = append(ended, *s)
		}
	}
	return ended, nil
}
