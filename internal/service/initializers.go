// File: internal/service/initializers.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/llmclient"
	"github.com/xkilldash9x/synapse/internal/store"
)

// InitializePostgres connects the per-user session store. It returns (nil, nil)
// when no database URL is configured.
func InitializePostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.PostgresStore, error) {
	if cfg.URL == "" {
		logger.Info("Database URL is not set. Authenticated history is disabled.")
		return nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse PGX pool config: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create PGX connection pool: %w", err)
	}

	pg, err := store.NewPostgresStore(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	logger.Info("PostgreSQL session store ready.", zap.String("host", poolConfig.ConnConfig.Host))
	return pg, nil
}

// InitializeSQLite opens the anonymous history database. It returns (nil, nil) when disabled.
func InitializeSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*store.SQLiteStore, error) {
	if !cfg.Enabled || cfg.Path == "" {
		logger.Info("SQLite history is disabled.")
		return nil, nil
	}
	s, err := store.OpenSQLite(ctx, cfg.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite history: %w", err)
	}
	logger.Info("SQLite history store ready.", zap.String("path", cfg.Path))
	return s, nil
}

// InitializeLLMClient creates the model client for the configured provider.
func InitializeLLMClient(cfg config.LLMConfig, keys *llmclient.KeyStore, logger *zap.Logger) (schemas.LLMClient, error) {
	client, err := llmclient.NewClient(cfg, keys, logger)
	if err != nil {
		logger.Error("Failed to initialize LLM client.", zap.Error(err))
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if !keys.Configured() {
		logger.Warn("No model API key configured. Requests will be served in simulation mode.")
	}
	return client, nil
}
