package handler

import (
	"github.com/go-telegram/bot"

	"github.com/lunahq/attendant/internal/assistant"
	"github.com/lunahq/attendant/internal/config"
)

// Handler holds all dependencies needed by command and text handlers.
type Handler struct {
	bot       *bot.Bot
	cfg       *config.Config
	assistant *assistant.Assistant
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot       *bot.Bot
	Cfg       *config.Config
	Assistant *assistant.Assistant
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:       deps.Bot,
		cfg:       deps.Cfg,
		assistant: deps.Assistant,
	}
}

// Register wires all command handlers onto the bot.
func (h *Handler) Register() {
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/end", bot.MatchTypePrefix, h.handleEnd)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, h.handleStats)
}
