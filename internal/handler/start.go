package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const welcomeText = `👋 Hi! I'm your assistant.

Just send me a message and I'll reply. I can also:
• generate images — "draw me a sunset"
• record feature requests — "feature request: dark mode"
• answer questions about what I've done for you

Commands:
/end — reset the current conversation
/start — show this message`

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   welcomeText,
	})
}
