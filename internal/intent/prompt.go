package intent

import (
	"fmt"
	"strings"

	"github.com/lunahq/attendant/internal/domain"
)

const classifyInstructions = `You are an intent classification system for a conversational assistant. Analyze the user's message and determine their intent.

AVAILABLE INTENTS:

1. generate_image - User wants to create an image
2. submit_feature - User wants to submit a feature request
3. get_status - User asking about assistant or request status
4. get_help - User needs help or information
5. general_conversation - Casual conversation
6. action_query - User asking about previous actions or results
7. unclear - Intent cannot be determined

ENTITY EXTRACTION:
- generate_image: "prompt" (subject), "style", "modifiers" (list)
- submit_feature: "title" (short), "description" (detailed)
- get_status: "request_type", "request_id"
- general_conversation: "topic"
- action_query: "action_type", "timeframe"

CONFIDENCE SCORING:
- 0.9-1.0: very clear intent with explicit keywords
- 0.75-0.89: clear intent with strong indicators
- 0.6-0.74: probable intent but some ambiguity
- 0.4-0.59: uncertain, multiple possible intents
- below 0.4: default to "unclear"
`

func classifyPrompt(message string, history []domain.Message) string {
	var sb strings.Builder
	sb.WriteString(classifyInstructions)

	if len(history) > 0 {
		sb.WriteString("\nRECENT CONVERSATION CONTEXT:\n")
		start := 0
		if len(history) > 5 {
			start = len(history) - 5
		}
		for _, m := range history[start:] {
			fmt.Fprintf(&sb, "%s: %s\n", strings.ToUpper(string(m.Role)), m.Content)
		}
	}

	fmt.Fprintf(&sb, `
USER MESSAGE TO CLASSIFY:
%q

Respond with ONLY a JSON object (no other text) in this exact format:
{"intent": "intent_name", "confidence": 0.85, "entities": {}, "reasoning": "brief explanation"}
`, message)
	return sb.String()
}

var intentGuidance = map[string]string{
	GenerateImage: "The user wants an image generated. Acknowledge the request warmly and confirm what will be created.",
	SubmitFeature: "The user is submitting a feature request. Thank them and confirm the request has been recorded.",
	GetStatus:     "The user is asking about status. Be reassuring and concrete.",
	GetHelp:       "The user needs help. Briefly list what you can do: generate images, record feature requests, and chat.",
	General:       "Casual conversation. Be friendly and natural.",
	ActionQuery:   "The user is asking about their previous actions. Answer from the conversation context when possible.",
	Unclear:       "The intent is unclear. Gently ask the user to clarify what they need.",
}

func systemPrompt(intentName string) string {
	guidance, ok := intentGuidance[intentName]
	if !ok {
		guidance = intentGuidance[General]
	}
	return "You are a helpful, concise conversational assistant on a chat platform. " +
		"Keep replies under a few short paragraphs. " + guidance
}
