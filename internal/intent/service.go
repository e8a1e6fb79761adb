package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lunahq/attendant/internal/domain"
)

// Service implements classification and response generation on the
// Anthropic Messages API.
type Service struct {
	client  *anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

// Options configures the Service.
type Options struct {
	Model   anthropic.Model
	Timeout time.Duration
}

func NewService(apiKey string, optFns ...func(o *Options)) *Service {
	opts := Options{
		Model:   anthropic.ModelClaudeSonnet4_20250514,
		Timeout: 60 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Service{
		client:  &client,
		model:   opts.Model,
		timeout: opts.Timeout,
	}
}

// Classify determines the intent of a message, using up to the last five
// history messages for context. Malformed model output degrades to the
// unclear intent rather than an error; only transport failures are
// returned.
func (s *Service) Classify(ctx context.Context, message string, history []domain.Message) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: 1024,
		// Lower temperature for consistent classification.
		Temperature: anthropic.Float(0.3),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(classifyPrompt(message, history))),
		},
	})
	if err != nil {
		return Unclassified(), fmt.Errorf("classify intent: %w", err)
	}

	result := parseClassification(responseText(resp))
	slog.Info("intent detected",
		"intent", result.Intent,
		"confidence", result.Confidence,
		"duration", time.Since(start),
	)
	return result, nil
}

// Respond generates a reply for the message given its classification and
// the conversation context.
func (s *Service) Respond(ctx context.Context, message string, r Result, history []domain.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       s.model,
		MaxTokens:   500,
		Temperature: anthropic.Float(0.7),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(r.Intent)},
		},
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	reply := responseText(resp)
	if reply == "" {
		return "", fmt.Errorf("generate response: empty completion")
	}
	return reply, nil
}

func responseText(resp *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String()
}

// parseClassification extracts the JSON object from the model output,
// tolerating code fences and surrounding prose. Anything unparseable maps
// to the unclear intent with zero confidence.
func parseClassification(raw string) Result {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		slog.Warn("unparseable classification, defaulting to unclear", "error", err)
		return Unclassified()
	}

	if !Known(r.Intent) {
		slog.Warn("unknown intent label, defaulting to unclear", "intent", r.Intent)
		r.Intent = Unclear
		r.Confidence = 0
	}
	r.Confidence = min(1.0, max(0.0, r.Confidence))
	if r.Entities == nil {
		r.Entities = map[string]any{}
	}
	return r
}
