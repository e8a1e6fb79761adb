package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken     string `env:"BOT_TOKEN,required"`
	DatabaseURL  string `env:"DATABASE_URL,required"`
	RedisURL     string `env:"REDIS_URL"` // empty selects the in-process fast store
	AnthropicKey string `env:"ANTHROPIC_API_KEY,required"`

	// Session lifecycle
	SessionTimeoutMinutes int `env:"SESSION_TIMEOUT_MINUTES" envDefault:"30"`
	MaxContextMessages    int `env:"MAX_CONTEXT_MESSAGES" envDefault:"20"`

	// Response cache
	ResponseCacheTTLSeconds int `env:"RESPONSE_CACHE_TTL_SECONDS" envDefault:"300"`
	ResponseCacheMaxSize    int `env:"RESPONSE_CACHE_MAX_SIZE" envDefault:"1000"`

	// Deduplication
	DedupTTLSeconds int `env:"DEDUP_TTL_SECONDS" envDefault:"600"`

	// Fast-store resilience
	CacheRetryAttempts     int `env:"CACHE_RETRY_ATTEMPTS" envDefault:"3"`
	CacheRetryDelaySeconds int `env:"CACHE_RETRY_DELAY_SECONDS" envDefault:"1"`
	CacheAlertThreshold    int `env:"CACHE_ALERT_THRESHOLD" envDefault:"5"`

	// Feature request reporting
	GitHubToken string `env:"GITHUB_TOKEN"`
	GitHubRepo  string `env:"GITHUB_REPO"` // "owner/repo"

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) ResponseCacheTTL() time.Duration {
	return time.Duration(c.ResponseCacheTTLSeconds) * time.Second
}

func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLSeconds) * time.Second
}

func (c *Config) CacheRetryDelay() time.Duration {
	return time.Duration(c.CacheRetryDelaySeconds) * time.Second
}
