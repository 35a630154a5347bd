// Package validate turns raw model text into a normalized Result and
// decides whether that Result is structurally acceptable.
package validate

import (
	"context"
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/adapters"
	"github.com/xkilldash9x/synapse/internal/llmutil"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultExplanation fills in for a missing explanation field.
	DefaultExplanation = "Code refactored for better performance and readability."
	// ParseFailureExplanation is the explanation on the error shape.
	ParseFailureExplanation = "Failed to parse AI response. The model output was invalid JSON."
	// ErrorSmell is the smell label on the error shape.
	ErrorSmell = "AI Error"
)

// modelResponse is what the prompt asks the model to return. Only
// refactored_code must have the right type; the prose fields are lenient.
type modelResponse struct {
	RefactoredCode *string             `json:"refactored_code"`
	Explanation    *schemas.FlexString `json:"explanation"`
	SmellDetected  *schemas.FlexString `json:"smell_detected"`
	Metrics        jsoniter.RawMessage `json:"metrics"`
}

// Validator parses, normalizes and syntax-checks model output.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the clock used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New creates a Validator.
func New(logger *zap.Logger, opts ...Option) *Validator {
	v := &Validator{now: time.Now, logger: logger.Named("validator")}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Now returns the validator's current time; the healing loop stamps its terminal results with it.
func (v *Validator) Now() time.Time { return v.now() }

// Process decodes raw into a Result. family is the resolved profile's family and
// decides whether the refactored code is syntax checked.
//
// On success it returns the Result and a nil error. Otherwise the error is one of
// *ParseError, *FieldError or *SyntaxError. A *ParseError comes with the
// error-shaped Result; a *SyntaxError comes with the candidate Result so the
// caller can return it degraded; a *FieldError comes with a nil Result.
// A cancelled ctx during the syntax check yields the context error.
func (v *Validator) Process(ctx context.Context, raw string, family adapters.Family) (*schemas.Result, error) {
	resp, err := llmutil.ParseJSONResponse[modelResponse](raw)
	if err != nil {
		v.logger.Debug("Model output is not valid JSON", zap.Error(err), zap.Int("length", len(raw)))
		return ErrorResult(raw, ParseFailureExplanation, v.now()), &ParseError{Err: err}
	}

	if resp.RefactoredCode == nil || strings.TrimSpace(*resp.RefactoredCode) == "" {
		return nil, &FieldError{Field: "refactored_code"}
	}

	result := &schemas.Result{
		Timestamp:      schemas.FormatTimestamp(v.now()),
		RefactoredCode: *resp.RefactoredCode,
		Explanation:    DefaultExplanation,
		Metrics:        decodeMetrics(resp.Metrics),
	}
	if resp.SmellDetected != nil {
		result.SmellDetected = schemas.StringPtr(string(*resp.SmellDetected))
	}
	if resp.Explanation != nil && strings.TrimSpace(string(*resp.Explanation)) != "" {
		result.Explanation = string(*resp.Explanation)
	}

	if NeedsSyntaxCheck(family, result.RefactoredCode) {
		if err := CheckSyntax(ctx, result.RefactoredCode); err != nil {
			var serr *SyntaxError
			if errors.As(err, &serr) {
				return result, serr
			}
			return nil, err
		}
	}
	return result, nil
}

// decodeMetrics never fails; a metrics value that is not an object yields zero metrics.
func decodeMetrics(raw jsoniter.RawMessage) schemas.Metrics {
	var m schemas.Metrics
	if len(raw) == 0 {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return schemas.Metrics{}
	}
	return m
}

// ErrorResult builds the terminal error-shaped Result. raw is kept for diagnostics.
func ErrorResult(raw, explanation string, now time.Time) *schemas.Result {
	return &schemas.Result{
		Timestamp:      schemas.FormatTimestamp(now),
		RefactoredCode: "",
		Explanation:    explanation,
		SmellDetected:  schemas.StringPtr(ErrorSmell),
		Error:          true,
		RawOutput:      raw,
	}
}
