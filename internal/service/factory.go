// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/api"
	"github.com/xkilldash9x/synapse/internal/auth"
	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/llmclient"
	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/pipeline"
	"github.com/xkilldash9x/synapse/internal/store"
)

// Options selects which parts of the service graph Create builds.
type Options struct {
	// Persistence enables the history stores and the background gateway.
	Persistence bool
	// HTTP builds the API server on top of the pipeline.
	HTTP bool
}

// ComponentFactory creates the set of components a command needs. The
// abstraction keeps command logic testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger, opts Options) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create handles the full dependency injection and initialization of components.
func (f *concreteFactory) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger, opts Options) (*Components, error) {
	components := &Components{logger: logger}

	// Ensure cleanup happens if initialization fails midway.
	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			_ = components.Shutdown(context.Background())
		}
	}()

	// 1. Metrics
	components.Registry = prometheus.NewRegistry()
	components.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	components.Metrics = observability.NewMetrics(components.Registry)

	// 2. Model client
	components.Keys = llmclient.NewKeyStore(cfg.LLM().APIKey)
	client, err := InitializeLLMClient(cfg.LLM(), components.Keys, logger)
	if err != nil {
		initializationErr = err
		return nil, initializationErr
	}
	components.LLM = client
	logger.Debug("LLM client initialized.", zap.String("provider", cfg.LLM().Provider))

	// 3. Persistence. Both stores are optional; a store that fails to open is
	// skipped so the pipeline keeps serving.
	var sink schemas.ResultSink
	if opts.Persistence {
		sqlite, err := InitializeSQLite(ctx, cfg.SQLite(), logger)
		if err != nil {
			logger.Warn("Continuing without anonymous history.", zap.Error(err))
		}
		pg, err := InitializePostgres(ctx, cfg.Database(), logger)
		if err != nil {
			logger.Warn("Continuing without authenticated history.", zap.Error(err))
		}
		components.Gateway = store.NewGateway(sqlite, pg, cfg.Persistence().Timeout, logger, components.Metrics)
		sink = components.Gateway
		logger.Debug("Persistence gateway initialized.", zap.Bool("sqlite", sqlite != nil), zap.Bool("postgres", pg != nil))
	}

	// 4. Pipeline
	orch, err := pipeline.New(cfg.Pipeline(), client, sink, logger, components.Metrics)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create pipeline: %w", err)
		return nil, initializationErr
	}
	components.Pipeline = orch
	logger.Debug("Pipeline initialized.")

	// 5. Auth
	components.Issuer = auth.NewIssuer(cfg.Auth().JWTSecret, cfg.Auth().TokenTTL)
	if !components.Issuer.Enabled() {
		logger.Info("JWT secret is not set. All requests are treated as anonymous.")
	}

	// 6. HTTP
	if opts.HTTP {
		deps := api.Deps{
			Pipeline: orch,
			Keys:     components.Keys,
			Issuer:   components.Issuer,
			Gatherer: components.Registry,
		}
		if components.Gateway != nil {
			deps.History = components.Gateway
		}
		srv, err := api.NewServer(cfg.Server(), cfg.RateLimit(), deps, logger)
		if err != nil {
			initializationErr = fmt.Errorf("failed to create api server: %w", err)
			return nil, initializationErr
		}
		components.Server = srv
		logger.Debug("API server initialized.")
	}

	logger.Info("All components initialized successfully.")
	return components, nil
}
