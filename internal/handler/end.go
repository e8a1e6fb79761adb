package handler

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := strconv.FormatInt(update.Message.From.ID, 10)

	ended, err := h.assistant.EndConversation(ctx, userID)
	if err != nil {
		slog.Error("end conversation", "user_id", userID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Something went wrong ending the conversation. Please try again.",
		})
		return
	}

	text := "🔄 Conversation ended. Your next message starts a fresh one."
	if !ended {
		text = "ℹ️ No active conversation. Just send me a message to start one."
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}
