// Package intent speaks to the external completion service: it classifies
// inbound messages into an intent taxonomy and generates context-aware
// replies via the Anthropic Messages API. Both calls may fail or time out;
// callers degrade to the canned fallbacks rather than surfacing errors to
// the user.
package intent

// Intent categories the classifier may return.
const (
	GenerateImage = "generate_image"
	SubmitFeature = "submit_feature"
	GetStatus     = "get_status"
	GetHelp       = "get_help"
	General       = "general_conversation"
	ActionQuery   = "action_query"
	Unclear       = "unclear"
)

var knownIntents = map[string]struct{}{
	GenerateImage: {},
	SubmitFeature: {},
	GetStatus:     {},
	GetHelp:       {},
	General:       {},
	ActionQuery:   {},
	Unclear:       {},
}

// Known reports whether the classifier's label belongs to the taxonomy.
func Known(intent string) bool {
	_, ok := knownIntents[intent]
	return ok
}

// Result is the outcome of classifying one message.
type Result struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
	Reasoning  string         `json:"reasoning"`
}

// Unclassified is the fail-safe result used when classification is
// unavailable.
func Unclassified() Result {
	return Result{Intent: Unclear, Entities: map[string]any{}}
}

var fallbackReplies = map[string]string{
	GenerateImage: "I'd love to create that image! Could you describe what you'd like to see in a bit more detail?",
	SubmitFeature: "I'll help you submit that feature request! What would you like to suggest?",
	GetStatus:     "I'm here and ready to help! Everything is working normally.",
	GetHelp:       "I'm here to help! I can create images, submit feature requests, and chat with you. What would you like to do?",
	General:       "Thanks for chatting with me! How can I assist you today?",
	ActionQuery:   "Let me check your previous actions. What specifically would you like to know about?",
	Unclear:       "I'm not quite sure what you're asking. Could you rephrase that, or let me know if you'd like to create an image or submit a feature request?",
}

// Fallback returns the canned, intent-appropriate reply used when the
// completion service fails or times out.
func Fallback(intent string) string {
	if reply, ok := fallbackReplies[intent]; ok {
		return reply
	}
	return fallbackReplies[Unclear]
}
