package store

import (
	"context"
	"fmt"

	"financewatch/internal/config"
)

// NewFromConfig opens the KV backend selected by history.backend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (KV, error) {
	switch cfg.History.Backend {
	case "sqlite", "":
		if cfg.App.DataDir == "" {
			return nil, fmt.Errorf("app.data_dir required for sqlite history")
		}
		return NewStore(cfg.App.DataDir)
	case "redis":
		if cfg.History.Redis.URL == "" {
			return nil, fmt.Errorf("history.redis.url required for redis history")
		}
		return NewRedisStore(ctx, cfg.History.Redis.URL, cfg.History.Redis.Prefix)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.History.Backend)
	}
}
