package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	if !h.cfg.IsAdmin(update.Message.From.ID) {
		return
	}

	s := h.assistant.CacheStats()
	text := fmt.Sprintf(
		"📊 *Response cache*\n\nSize: %d\nHits: %d\nMisses: %d\nEvictions: %d\nHit rate: %.1f%%",
		s.Size, s.Hits, s.Misses, s.Evictions, s.HitRate*100,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
}
