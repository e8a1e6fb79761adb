// Package assistant orchestrates one inbound exchange end to end:
// deduplication, reply-cache lookup, session resolution, classification,
// response generation, and persistence of both sides of the exchange.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lunahq/attendant/internal/cache"
	"github.com/lunahq/attendant/internal/dedup"
	"github.com/lunahq/attendant/internal/domain"
	"github.com/lunahq/attendant/internal/intent"
	"github.com/lunahq/attendant/internal/session"
)

// Completer is the external completion service. It may fail or time out;
// the orchestrator degrades to canned replies when it does.
type Completer interface {
	Classify(ctx context.Context, message string, history []domain.Message) (intent.Result, error)
	Respond(ctx context.Context, message string, r intent.Result, history []domain.Message) (string, error)
}

// FeatureStore persists feature requests and image requests captured from
// exchanges.
type FeatureStore interface {
	CreateFeatureRequest(ctx context.Context, userID, title, description string) (*domain.FeatureRequest, error)
	SetFeatureRequestIssue(ctx context.Context, id int64, issueURL string) error
	CreateGeneratedImage(ctx context.Context, userID, imageURL, prompt string) (*domain.GeneratedImage, error)
}

// IssueReporter mirrors feature requests to the code-hosting service.
type IssueReporter interface {
	Enabled() bool
	CreateIssue(ctx context.Context, title, body string) (string, error)
}

type Assistant struct {
	sessions  *session.Manager
	replies   *cache.ResponseCache
	gate      *dedup.Gate
	completer Completer
	features  FeatureStore
	reporter  IssueReporter
}

func New(sessions *session.Manager, replies *cache.ResponseCache, gate *dedup.Gate, completer Completer, features FeatureStore, reporter IssueReporter) *Assistant {
	return &Assistant{
		sessions:  sessions,
		replies:   replies,
		gate:      gate,
		completer: completer,
		features:  features,
		reporter:  reporter,
	}
}

// HandleExchange produces at most one reply for an inbound message. An
// empty reply with a nil error means no reply should be sent (a duplicate
// delivery already claimed by another handler). A non-nil error means the
// durable store could not record the exchange; the caller decides the
// user-visible failure message.
func (a *Assistant) HandleExchange(ctx context.Context, userID, messageID, text string) (string, error) {
	if !a.gate.Acquire(ctx, messageID) {
		slog.Info("duplicate message suppressed", "message_id", messageID, "user_id", userID)
		return "", nil
	}
	defer a.gate.Release(ctx, messageID)

	// Intent is unknown before classification, so cached replies are
	// addressed by message content alone.
	if reply, ok := a.replies.Get(text, ""); ok {
		slog.Debug("reply served from cache", "user_id", userID)
		return reply, nil
	}

	// Session resolution and classification are independent; run them
	// concurrently. Classification failure degrades to unclear, only the
	// session path can fail the exchange.
	var (
		sess *domain.Session
		res  = intent.Unclassified()
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := a.sessions.GetOrCreate(gctx, userID)
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	g.Go(func() error {
		r, err := a.completer.Classify(gctx, text, nil)
		if err != nil {
			slog.Warn("intent classification unavailable", "error", err)
			return nil
		}
		res = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("resolve session: %w", err)
	}

	history := a.sessions.Context(ctx, sess.ID, 0)

	reply, err := a.completer.Respond(ctx, text, res, history)
	if err != nil {
		slog.Warn("completion failed, using fallback reply",
			"intent", res.Intent, "error", err)
		reply = intent.Fallback(res.Intent)
	}

	if err := a.sessions.AddExchange(ctx, sess.ID, userID, text, reply, res.Intent, res.Confidence); err != nil {
		return "", fmt.Errorf("record exchange: %w", err)
	}

	if a.replies.Cacheable(res.Intent) {
		a.replies.Set(text, reply, "")
	}

	switch res.Intent {
	case intent.SubmitFeature:
		a.recordFeature(ctx, userID, text, res)
	case intent.GenerateImage:
		a.recordImageRequest(ctx, userID, text, res)
	}

	return reply, nil
}

// CacheStats exposes reply-cache effectiveness for the stats surface.
func (a *Assistant) CacheStats() cache.Stats {
	return a.replies.Stats()
}

// ClearExpiredReplies sweeps the reply cache; intended for periodic
// invocation.
func (a *Assistant) ClearExpiredReplies() int {
	return a.replies.ClearExpired()
}

// PruneSessions ends sessions idle past the timeout; intended for periodic
// invocation.
func (a *Assistant) PruneSessions(ctx context.Context) (int, error) {
	return a.sessions.PruneExpired(ctx)
}

// EndConversation ends the user's active session, reporting whether one
// existed.
func (a *Assistant) EndConversation(ctx context.Context, userID string) (bool, error) {
	return a.sessions.EndForUser(ctx, userID)
}

// recordFeature persists a submit_feature exchange and mirrors it to the
// issue tracker, best effort.
func (a *Assistant) recordFeature(ctx context.Context, userID, text string, res intent.Result) {
	title, _ := res.Entities["title"].(string)
	description, _ := res.Entities["description"].(string)
	if title == "" {
		title = truncate(text, 80)
	}
	if description == "" {
		description = text
	}

	fr, err := a.features.CreateFeatureRequest(ctx, userID, title, description)
	if err != nil {
		slog.Error("store feature request", "user_id", userID, "error", err)
		return
	}

	if a.reporter == nil || !a.reporter.Enabled() {
		return
	}
	issueURL, err := a.reporter.CreateIssue(ctx, title, description)
	if err != nil {
		slog.Warn("mirror feature request to issue tracker", "error", err)
		return
	}
	if err := a.features.SetFeatureRequestIssue(ctx, fr.ID, issueURL); err != nil {
		slog.Warn("link feature request to issue", "error", err)
	}
	slog.Info("feature request mirrored", "feature_id", fr.ID, "issue_url", issueURL)
}

// recordImageRequest captures a generate_image exchange so the prompt is
// queryable later. No generation backend is attached yet, so the URL is
// left empty for a fulfillment pass to fill in.
func (a *Assistant) recordImageRequest(ctx context.Context, userID, text string, res intent.Result) {
	prompt, _ := res.Entities["prompt"].(string)
	if prompt == "" {
		prompt = text
	}
	if _, err := a.features.CreateGeneratedImage(ctx, userID, "", prompt); err != nil {
		slog.Error("store image request", "user_id", userID, "error", err)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
