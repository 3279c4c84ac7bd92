package store

import (
	"context"
	"fmt"

	"healthmate/backend/internal/config"
	"healthmate/backend/internal/db"
	"healthmate/backend/internal/logger"
)

// Open builds the DocumentStore selected by STORE_BACKEND. The postgres
// backend creates its table when missing and then checks its columns.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendFile:
		return NewFileStore(cfg.DataDir, log)
	case config.StoreBackendPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connect failed: %w", err)
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		if err := ValidateSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database schema mismatch: %w", err)
		}
		return NewPostgresStore(pool, log), nil
	case config.StoreBackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
