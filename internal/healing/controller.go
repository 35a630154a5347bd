// internal/healing/controller.go
package healing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/adapters"
	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/llmclient"
	"github.com/xkilldash9x/synapse/internal/observability"
	"github.com/xkilldash9x/synapse/internal/prompt"
	"github.com/xkilldash9x/synapse/internal/validate"
)

// DefaultMaxAttempts is the number of corrective generations after the first one.
const DefaultMaxAttempts = 2

// InvalidJSONFeedback is the correction text sent after a JSON parse failure.
const InvalidJSONFeedback = "Invalid JSON Response"

// Outcome labels recorded per attempt.
const (
	outcomeSuccess      = "success"
	outcomeInvalidJSON  = "invalid_json"
	outcomeMissingField = "missing_field"
	outcomeSyntaxError  = "syntax_error"
	outcomeTransport    = "transport_retry"
)

// Config bounds the correction loop.
type Config struct {
	// MaxAttempts is the corrective budget; total generations are MaxAttempts+1.
	MaxAttempts          int
	AttemptTimeout       time.Duration
	RetryTransportErrors bool
}

// ConfigFrom maps the pipeline configuration onto a controller Config.
func ConfigFrom(p config.PipelineConfig) Config {
	return Config{
		MaxAttempts:          p.MaxHealingAttempts,
		AttemptTimeout:       p.AttemptTimeout,
		RetryTransportErrors: p.RetryTransportErrors,
	}
}

// Controller drives the model client and the validator until the output is
// accepted or the correction budget runs out.
type Controller struct {
	client    schemas.LLMClient
	validator *validate.Validator
	cfg       Config
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewController creates a Controller. metrics may be nil.
func NewController(client schemas.LLMClient, validator *validate.Validator, cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Controller {
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	return &Controller{
		client:    client,
		validator: validator,
		cfg:       cfg,
		logger:    logger.Named("healing"),
		metrics:   metrics,
	}
}

// failure is what the last rejected attempt left behind.
type failure struct {
	raw       string
	candidate *schemas.Result
}

// Run generates a Result for basePrompt.
//
// It returns an error only when the model client fails (ErrNoCredentials
// included) or ctx ends. Validation failures never surface as errors: once the
// budget is spent, a syntax failure yields the candidate marked syntax_warning,
// and a parse or missing-field failure yields the error-shaped Result.
func (c *Controller) Run(ctx context.Context, basePrompt string, family adapters.Family) (*schemas.Result, error) {
	budget := c.cfg.MaxAttempts
	attemptsLeft := budget
	prevErr := ""

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log := c.logger.With(zap.Int("attempt", attempt+1), zap.Int("attempts_left", attemptsLeft))
		raw, err := c.generate(ctx, prompt.WithCorrection(basePrompt, prevErr))
		if err != nil {
			c.metrics.LLMError(llmclient.Kind(err))
			if errors.Is(err, llmclient.ErrNoCredentials) {
				return nil, err
			}
			if c.cfg.RetryTransportErrors && attemptsLeft > 0 && ctx.Err() == nil && llmclient.IsTransient(err) {
				log.Warn("Transient model error, retrying.", zap.Error(err))
				c.metrics.HealingAttempt(outcomeTransport)
				attemptsLeft--
				continue
			}
			return nil, fmt.Errorf("model call failed on attempt %d: %w", attempt+1, err)
		}

		result, verr := c.validator.Process(ctx, raw, family)
		if verr == nil {
			result.AnalysisType = schemas.AnalysisFirstPass
			if attempt > 0 {
				result.AnalysisType = schemas.AnalysisSelfHealed
			}
			result.SafetyStatus = schemas.SafetyVerifiedStrict
			result.Metrics.HealingAttempts = schemas.IntPtr(budget - attemptsLeft)
			c.metrics.HealingAttempt(outcomeSuccess)
			log.Debug("Model output accepted.", zap.String("analysis_type", string(result.AnalysisType)))
			return result, nil
		}

		outcome, feedback, ok := classify(verr)
		if !ok {
			// Only the syntax check can fail this way, when ctx ends mid-parse.
			return nil, verr
		}
		c.metrics.HealingAttempt(outcome)
		last := failure{raw: raw}
		if outcome == outcomeSyntaxError {
			last.candidate = result
		}

		if attemptsLeft == 0 {
			log.Warn("Correction budget exhausted.", zap.String("last_failure", outcome), zap.String("detail", verr.Error()))
			return c.exhausted(last, budget), nil
		}

		log.Info("Model output rejected, requesting correction.", zap.String("reason", outcome), zap.String("detail", verr.Error()))
		prevErr = feedback
		attemptsLeft--
	}
}

func (c *Controller) generate(ctx context.Context, userPrompt string) (string, error) {
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}
	return c.client.Generate(ctx, schemas.GenerationRequest{UserPrompt: userPrompt})
}

// classify maps a validation error to a metrics label and the text fed back to the model.
func classify(err error) (outcome, feedback string, ok bool) {
	var perr *validate.ParseError
	var ferr *validate.FieldError
	var serr *validate.SyntaxError
	switch {
	case errors.As(err, &perr):
		return outcomeInvalidJSON, InvalidJSONFeedback, true
	case errors.As(err, &ferr):
		return outcomeMissingField, ferr.Error(), true
	case errors.As(err, &serr):
		return outcomeSyntaxError, serr.Error(), true
	default:
		return "", "", false
	}
}

func (c *Controller) exhausted(last failure, budget int) *schemas.Result {
	if last.candidate != nil {
		res := last.candidate
		res.SafetyStatus = schemas.SafetySyntaxWarning
		res.AnalysisType = schemas.AnalysisCorrectionFailed
		res.Metrics.HealingAttempts = schemas.IntPtr(budget)
		return res
	}

	explanation := fmt.Sprintf("AI returned invalid JSON structure after %d correction attempts.", budget)
	res := validate.ErrorResult(last.raw, explanation, c.validator.Now())
	res.AnalysisType = schemas.AnalysisCorrectionFailed
	res.Metrics.HealingAttempts = schemas.IntPtr(budget)
	return res
}
