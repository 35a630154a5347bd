// File: internal/service/components.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/api"
	"github.com/xkilldash9x/synapse/internal/auth"
	"github.com/xkilldash9x/synapse/internal/llmclient"
	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/pipeline"
	"github.com/xkilldash9x/synapse/internal/store"
)

// Components holds every initialized service of one process and owns their lifecycle.
type Components struct {
	Keys     *llmclient.KeyStore
	LLM      schemas.LLMClient
	Issuer   *auth.Issuer
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Gateway  *store.Gateway
	Pipeline *pipeline.Orchestrator
	// Server is nil unless the HTTP surface was requested.
	Server *api.Server

	logger *zap.Logger
}

// Shutdown releases components in reverse dependency order: pending history
// writes are flushed before the model client is closed.
func (c *Components) Shutdown(ctx context.Context) error {
	logger := c.logger
	if logger == nil {
		logger = observability.GetLogger()
	}
	logger.Debug("Beginning components shutdown sequence.")

	var errs []error
	if c.Gateway != nil {
		if err := c.Gateway.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("persistence shutdown: %w", err))
		} else {
			logger.Debug("Persistence gateway closed.")
		}
	}

	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			errs = append(errs, fmt.Errorf("llm client shutdown: %w", err))
		} else {
			logger.Debug("LLM client closed.")
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Warn("Components shut down with errors.", zap.Error(err))
		return err
	}
	logger.Info("All components shut down successfully.")
	return nil
}
