package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lunahq/attendant/internal/config"
	tg "github.com/lunahq/attendant/internal/telegram"
)

const apologyText = "😔 Sorry, something went wrong on my side. Please try again in a moment."

// HandleText processes private text messages as assistant exchanges.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" || update.Message.From == nil {
		return
	}

	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	text := msg.Text
	if len([]rune(text)) > config.MaxInboundMessageLen {
		text = string([]rune(text)[:config.MaxInboundMessageLen])
	}

	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	messageID := strconv.Itoa(msg.ID)

	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	reply, err := h.assistant.HandleExchange(ctx, userID, messageID, text)
	if err != nil {
		slog.Error("exchange failed", "user_id", userID, "message_id", messageID, "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   apologyText,
		})
		return
	}
	if reply == "" {
		// Duplicate delivery; another handler owns the reply.
		return
	}

	if err := tg.SendLongMessage(ctx, b, chatID, reply, &msg.ID); err != nil {
		slog.Error("send reply", "chat_id", chatID, "error", err)
	}
}
