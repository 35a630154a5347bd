// File: internal/pipeline/orchestrator.go
// Description: Runs one refactor request end to end. It resolves the language
// profile, runs the static smell pass, builds the prompt, drives the healing
// loop and degrades to the offline fallback whenever the model is unavailable.

package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/adapters"
	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/fallback"
	"github.com/xkilldash9x/synapse/internal/healing"
	"github.com/xkilldash9x/synapse/internal/llmclient"
	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/prompt"
	"github.com/xkilldash9x/synapse/internal/smells"
	"github.com/xkilldash9x/synapse/internal/validate"
)

// Request is a single refactor job.
type Request struct {
	Code string
	// Language is a profile name, a filename, or empty for content sniffing.
	Language  string
	Objective string
	// UserID is set for authenticated callers and selects per-user persistence.
	UserID string
}

// Orchestrator wires the pipeline stages together. It is safe for concurrent use.
type Orchestrator struct {
	cfg        config.PipelineConfig
	controller *healing.Controller
	sink       schemas.ResultSink
	cache      *lru.Cache[string, *schemas.Result]
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	newID      func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator overrides how result IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// New creates an Orchestrator. sink and metrics may be nil.
func New(
	cfg config.PipelineConfig,
	client schemas.LLMClient,
	sink schemas.ResultSink,
	logger *zap.Logger,
	metrics *observability.Metrics,
	opts ...Option,
) (*Orchestrator, error) {
	if client == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize pipeline with nil dependencies")
	}

	o := &Orchestrator{
		cfg:     cfg,
		sink:    sink,
		logger:  logger.Named("pipeline"),
		metrics: metrics,
		now:     time.Now,
		newID:   newUUIDv7,
	}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *schemas.Result](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		o.cache = cache
	}

	validator := validate.New(logger, validate.WithClock(o.now))
	o.controller = healing.NewController(client, validator, healing.ConfigFrom(cfg), logger, metrics)
	return o, nil
}

// Run executes the pipeline. It always returns a Result: model unavailability
// and any other model client failure produce the fallback Result instead.
func (o *Orchestrator) Run(ctx context.Context, req Request) *schemas.Result {
	start := time.Now()

	// 1. Resolve the language profile.
	language := req.Language
	if language == "" {
		language = adapters.DetectLanguage(req.Code)
	}
	profile := adapters.Lookup(language)

	objective := req.Objective
	if objective == "" {
		objective = o.cfg.DefaultObjective
	}

	// 2. Serve identical, fully verified requests from the cache.
	key := cacheKey(profile.Name, objective, req.Code)
	if result, ok := o.cached(key); ok {
		o.metrics.CacheHit()
		return o.finish(req, profile, objective, result, start)
	}

	// 3. Static analysis and prompt construction.
	findings := smells.Analyze(req.Code, profile)
	userPrompt := prompt.Build(req.Code, profile, findings, objective)

	// 4. Model inference with self-healing.
	result, err := o.controller.Run(ctx, userPrompt, profile.Family)
	if err != nil {
		if errors.Is(err, llmclient.ErrNoCredentials) {
			o.logger.Info("No model credentials configured, using simulation mode.")
		} else {
			o.logger.Warn("Model call failed, falling back to simulation mode.", zap.Error(err))
		}
		result = fallback.Generate(req.Code, profile)
	} else if o.cache != nil && result.SafetyStatus == schemas.SafetyVerifiedStrict {
		o.cache.Add(key, result.Clone())
	}

	return o.finish(req, profile, objective, result, start)
}

// finish stamps request metadata onto result, hands a copy to the sink and records metrics.
func (o *Orchestrator) finish(req Request, profile adapters.Profile, objective string, result *schemas.Result, start time.Time) *schemas.Result {
	result.ID = o.newID()
	if result.Timestamp == "" {
		result.Timestamp = schemas.FormatTimestamp(o.now())
	}
	result.OriginalCode = req.Code
	result.Language = profile.Name
	result.RefactorType = objective

	if o.sink != nil {
		o.sink.Save(result.Clone(), req.UserID)
	}

	o.metrics.ObservePipeline(profile.Name, string(result.AnalysisType), time.Since(start))
	o.logger.Debug("Pipeline finished.",
		zap.String("id", result.ID),
		zap.String("language", profile.Name),
		zap.String("analysis_type", string(result.AnalysisType)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}

// cached returns a fresh copy of a cached result with a new timestamp.
func (o *Orchestrator) cached(key string) (*schemas.Result, bool) {
	if o.cache == nil {
		return nil, false
	}
	hit, ok := o.cache.Get(key)
	if !ok {
		return nil, false
	}
	result := hit.Clone()
	result.Timestamp = schemas.FormatTimestamp(o.now())
	return result, true
}

func cacheKey(language, objective, code string) string {
	sum := sha256.Sum256([]byte(language + "|" + objective + "|" + code))
	return hex.EncodeToString(sum[:])
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
