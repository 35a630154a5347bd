package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/adapters"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return New(zaptest.NewLogger(t), WithClock(func() time.Time { return fixedNow }))
}

func TestProcess_ValidResponse(t *testing.T) {
	v := newTestValidator(t)
	raw := `{"refactored_code":"const test = () => { const x = 1; };","explanation":"Modernized","smell_detected":"Legacy var usage","metrics":{"complexity_before":3,"complexity_after":"1","risk_score":150}}`

	res, err := v.Process(context.Background(), raw, adapters.FamilyECMAScript)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "const test = () => { const x = 1; };", res.RefactoredCode)
	assert.Equal(t, "Modernized", res.Explanation)
	assert.Equal(t, "Legacy var usage", res.Smell())
	assert.Equal(t, "2025-03-14T09:26:53.589Z", res.Timestamp)
	assert.Equal(t, 3.0, res.Metrics.ComplexityBefore)
	assert.Equal(t, 1.0, res.Metrics.ComplexityAfter)
	assert.Equal(t, 100.0, res.Metrics.RiskScore, "risk is clamped")
	assert.False(t, res.Error)
}

func TestProcess_StripsFences(t *testing.T) {
	v := newTestValidator(t)
	for name, raw := range map[string]string{
		"json tag":  "```json\n{\"refactored_code\":\"x = 1\"}\n```",
		"bare":      "```\n{\"refactored_code\":\"x = 1\"}\n```",
		"upper tag": "```JSON\n{\"refactored_code\":\"x = 1\"}```",
		"padded":    "  \n{\"refactored_code\":\"x = 1\"}\n ",
	} {
		t.Run(name, func(t *testing.T) {
			res, err := v.Process(context.Background(), raw, adapters.FamilyECMAScript)
			require.NoError(t, err)
			assert.Equal(t, "x = 1", res.RefactoredCode)
		})
	}
}

func TestProcess_MissingExplanationIsDefaulted(t *testing.T) {
	v := newTestValidator(t)
	for _, raw := range []string{
		`{"refactored_code":"print(1)"}`,
		`{"refactored_code":"print(1)","explanation":""}`,
		`{"refactored_code":"print(1)","explanation":null}`,
	} {
		res, err := v.Process(context.Background(), raw, adapters.FamilyECMAScript)
		require.NoError(t, err, raw)
		assert.Equal(t, DefaultExplanation, res.Explanation)
	}
}

func TestProcess_MissingRefactoredCode(t *testing.T) {
	v := newTestValidator(t)
	for _, raw := range []string{
		`{"explanation":"nothing to see"}`,
		`{"refactored_code":""}`,
		`{"refactored_code":"   "}`,
		`null`,
	} {
		res, err := v.Process(context.Background(), raw, adapters.FamilyECMAScript)
		var ferr *FieldError
		require.True(t, errors.As(err, &ferr), "input %q should be a field error, got %v", raw, err)
		assert.Equal(t, "refactored_code", ferr.Field)
		assert.Nil(t, res)
	}
}

func TestProcess_InvalidJSON(t *testing.T) {
	v := newTestValidator(t)
	raw := "Sure! Here is your code: {not json"

	res, err := v.Process(context.Background(), raw, adapters.FamilyECMAScript)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.NotNil(t, res)

	assert.True(t, res.Error)
	assert.Empty(t, res.RefactoredCode)
	assert.Equal(t, ErrorSmell, res.Smell())
	assert.Equal(t, ParseFailureExplanation, res.Explanation)
	assert.Equal(t, raw, res.RawOutput)
}

func TestProcess_ProseWrappedJSONIsRejected(t *testing.T) {
	v := newTestValidator(t)
	_, err := v.Process(context.Background(), `Here you go: {"refactored_code":"x"}`, adapters.FamilyECMAScript)
	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestProcess_NonObjectMetricsAreZeroed(t *testing.T) {
	v := newTestValidator(t)
	res, err := v.Process(context.Background(), `{"refactored_code":"x = 1","metrics":"n/a"}`, adapters.FamilyECMAScript)
	require.NoError(t, err)
	assert.Equal(t, schemas.Metrics{}, res.Metrics)
}

func TestProcess_SyntaxFailure(t *testing.T) {
	v := newTestValidator(t)
	raw := `{"refactored_code":"const x = {;\nfunction (","explanation":"broken"}`

	res, err := v.Process(context.Background(), raw, adapters.FamilyECMAScript)
	var serr *SyntaxError
	require.True(t, errors.As(err, &serr), "expected syntax error, got %v", err)
	require.NotNil(t, res, "candidate result is returned alongside the syntax error")
	assert.Equal(t, "broken", res.Explanation)
	assert.GreaterOrEqual(t, serr.Line, 1)
	assert.NotEmpty(t, serr.Message)
	assert.Contains(t, serr.Error(), "Syntax error at line")
}

func TestProcess_CodeWithoutMarkersSkipsSyntaxCheck(t *testing.T) {
	v := newTestValidator(t)
	res, err := v.Process(context.Background(), `{"refactored_code":"def f(:\n  pass"}`, adapters.FamilyECMAScript)
	require.NoError(t, err, "code without function or const is not run through the JS grammar")
	assert.Equal(t, "def f(:\n  pass", res.RefactoredCode)
}

func TestProcess_SyntaxCheckOnlyForECMAScriptFamily(t *testing.T) {
	v := newTestValidator(t)
	tests := []struct {
		name   string
		family adapters.Family
		raw    string
	}{
		{"python docstring mentions function", adapters.FamilyPython,
			`{"refactored_code":"def add(a, b):\n    \"\"\"Helper function that adds two numbers.\"\"\"\n    return a + b"}`},
		{"java constant", adapters.FamilyJava,
			`{"refactored_code":"public class A {\n  // const value\n  private static final int X = 1;\n}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Process(context.Background(), tt.raw, tt.family)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.NotEmpty(t, res.RefactoredCode)
		})
	}

	t.Run("same code is rejected for the ECMAScript family", func(t *testing.T) {
		_, err := v.Process(context.Background(), tests[0].raw, adapters.FamilyECMAScript)
		var serr *SyntaxError
		assert.True(t, errors.As(err, &serr), "expected syntax error, got %v", err)
	})
}

func TestProcess_NonStringProseFieldsAreTolerated(t *testing.T) {
	v := newTestValidator(t)
	raw := `{"refactored_code":"x = 1","explanation":["Renamed","Inlined"],"smell_detected":["Long file","Deep nesting"]}`

	res, err := v.Process(context.Background(), raw, adapters.FamilyPython)
	require.NoError(t, err)
	assert.Equal(t, "Renamed; Inlined", res.Explanation)
	assert.Equal(t, "Long file; Deep nesting", res.Smell())

	res, err = v.Process(context.Background(), `{"refactored_code":"x = 1","explanation":7,"smell_detected":null}`, adapters.FamilyPython)
	require.NoError(t, err)
	assert.Equal(t, "7", res.Explanation)
	assert.Nil(t, res.SmellDetected)
}
