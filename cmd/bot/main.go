package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	attendant "github.com/lunahq/attendant"
	"github.com/lunahq/attendant/internal/assistant"
	"github.com/lunahq/attendant/internal/cache"
	"github.com/lunahq/attendant/internal/config"
	"github.com/lunahq/attendant/internal/dedup"
	"github.com/lunahq/attendant/internal/github"
	"github.com/lunahq/attendant/internal/handler"
	"github.com/lunahq/attendant/internal/intent"
	"github.com/lunahq/attendant/internal/middleware"
	"github.com/lunahq/attendant/internal/repository"
	"github.com/lunahq/attendant/internal/session"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(attendant.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	queries := repository.New(pool)

	// Connect to the fast store. Without a configured Redis the bot runs on
	// an in-process store: fine for development, but dedup claims and
	// session pointers then do not hold across instances.
	var fastStore cache.Store
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, using in-process fast store")
		fastStore = cache.NewMemoryStore()
	} else {
		redisStore, err := cache.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		fastStore = redisStore
	}

	fastClient := cache.NewClient(fastStore, cache.Options{
		Attempts:       cfg.CacheRetryAttempts,
		Delay:          cfg.CacheRetryDelay(),
		AlertThreshold: int64(cfg.CacheAlertThreshold),
	})

	// Initialize core components
	sessions := session.NewManager(queries, fastClient, session.Options{
		Timeout:        cfg.SessionTimeout(),
		MaxContext:     cfg.MaxContextMessages,
		CreateAttempts: config.SessionCreateAttempts,
	})
	replies := cache.NewResponseCache(cfg.ResponseCacheTTL(), cfg.ResponseCacheMaxSize)
	gate := dedup.New(fastClient, cfg.DedupTTL())
	completer := intent.NewService(cfg.AnthropicKey, func(o *intent.Options) {
		o.Timeout = config.RequestTimeout
	})
	issues := github.New(cfg.GitHubToken, cfg.GitHubRepo)

	asst := assistant.New(sessions, replies, gate, completer, queries, issues)

	// Repopulate fast-store pointers for sessions that were active before
	// the last shutdown or cache flush.
	if err := sessions.RecoverCacheState(ctx); err != nil {
		slog.Error("cache state recovery failed", "error", err)
	}

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
		),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	h := handler.New(handler.Deps{
		Bot:       b,
		Cfg:       cfg,
		Assistant: asst,
	})
	h.Register()

	// Plain text messages become assistant exchanges
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
			return
		}
		h.HandleText(ctx, b, update)
	})

	// Periodic reply-cache sweep
	go func() {
		ticker := time.NewTicker(config.CacheCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := asst.ClearExpiredReplies()
				stats := asst.CacheStats()
				slog.Info("reply cache swept",
					"removed", removed,
					"size", stats.Size,
					"hit_rate", stats.HitRate,
				)
			}
		}
	}()

	// Periodic session pruning
	go func() {
		ticker := time.NewTicker(config.SessionPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := asst.PruneSessions(context.Background()); err != nil {
					slog.Error("prune sessions", "error", err)
				}
			}
		}
	}()

	// Start bot
	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
