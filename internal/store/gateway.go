package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/observability"
)

// DefaultWriteTimeout bounds a single background save.
const DefaultWriteTimeout = 5 * time.Second

// Gateway fans finished Results out to the configured backends without
// blocking the request path, and serves the history views back.
// Either backend may be nil.
type Gateway struct {
	sqlite   *SQLiteStore
	postgres *PostgresStore
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewGateway creates a Gateway. A non-positive timeout uses DefaultWriteTimeout.
func NewGateway(sqlite *SQLiteStore, postgres *PostgresStore, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Gateway {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Gateway{
		sqlite:   sqlite,
		postgres: postgres,
		timeout:  timeout,
		logger:   logger.Named("persistence"),
		metrics:  metrics,
	}
}

// Save implements schemas.ResultSink. The write happens in the background on a
// copy of result; failures are logged and counted, never returned.
func (g *Gateway) Save(result *schemas.Result, userID string) {
	if result == nil {
		return
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		g.logger.Warn("Dropping result saved after shutdown.", zap.String("id", result.ID))
		return
	}
	g.wg.Add(1)
	g.mu.Unlock()

	res := result.Clone()
	go func() {
		defer g.wg.Done()
		// Detached from the request: the response may already be on the wire.
		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		defer cancel()
		g.write(ctx, res, userID)
	}()
}

func (g *Gateway) write(ctx context.Context, res *schemas.Result, userID string) {
	var eg errgroup.Group

	if g.postgres != nil && userID != "" {
		eg.Go(func() error {
			if err := g.postgres.SaveSession(ctx, userID, res); err != nil {
				g.metrics.PersistenceError("postgres")
				g.logger.Error("Postgres save failed.", zap.String("id", res.ID), zap.Error(err))
				return err
			}
			return nil
		})
	}

	if g.sqlite != nil {
		eg.Go(func() error {
			if err := g.sqlite.SaveHistory(ctx, res); err != nil {
				g.metrics.PersistenceError("sqlite")
				g.logger.Error("SQLite save failed.", zap.String("id", res.ID), zap.Error(err))
				return err
			}
			return nil
		})
	}

	if err := eg.Wait(); err == nil {
		g.logger.Debug("Result persisted.", zap.String("id", res.ID), zap.Bool("authenticated", userID != ""))
	}
}

// History returns the caller's sessions when authenticated and Postgres is
// available, otherwise the global SQLite feed. A Postgres failure falls back to SQLite.
func (g *Gateway) History(ctx context.Context, userID string, limit int) ([]schemas.HistoryEntry, error) {
	if userID != "" && g.postgres != nil {
		history, err := g.postgres.ListHistory(ctx, userID, limit)
		if err == nil {
			return history, nil
		}
		g.logger.Warn("Postgres history fetch failed, using global feed.", zap.Error(err))
	}
	if g.sqlite == nil {
		return []schemas.HistoryEntry{}, nil
	}
	return g.sqlite.ListHistory(ctx, limit)
}

// Stats returns dashboard aggregates, per user when authenticated and Postgres is available.
func (g *Gateway) Stats(ctx context.Context, userID string) (schemas.DashboardStats, error) {
	if userID != "" && g.postgres != nil {
		return g.postgres.Stats(ctx, userID)
	}
	if g.sqlite == nil {
		return newStats(0, 0, []schemas.RecentProject{}), nil
	}
	return g.sqlite.Stats(ctx)
}

// Close stops accepting writes, waits for in-flight ones until ctx ends, then
// closes both backends.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	var waitErr error
	select {
	case <-done:
	case <-ctx.Done():
		waitErr = ctx.Err()
		g.logger.Warn("Timed out waiting for background writes.", zap.Error(waitErr))
	}

	var errs []error
	if waitErr != nil {
		errs = append(errs, waitErr)
	} else {
		// Backends are only closed once no writer can still be using them.
		if g.sqlite != nil {
			errs = append(errs, g.sqlite.Close())
		}
		if g.postgres != nil {
			g.postgres.Close()
		}
	}
	return errors.Join(errs...)
}
