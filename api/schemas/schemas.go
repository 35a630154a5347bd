package schemas

import (
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TimestampLayout is the ISO 8601 layout, with milliseconds, used for Result timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// AnalysisType records which path through the pipeline produced a Result.
type AnalysisType string

const (
	AnalysisFirstPass        AnalysisType = "First Pass"
	AnalysisSelfHealed       AnalysisType = "Self-Healed"
	AnalysisCorrectionFailed AnalysisType = "Correction Failed"
	AnalysisSimulation       AnalysisType = "Simulation"
)

// SafetyStatus reports the outcome of the structural syntax check.
type SafetyStatus string

const (
	SafetyVerifiedStrict SafetyStatus = "verified_strict"
	SafetySyntaxWarning  SafetyStatus = "syntax_warning"
)

// Result is the canonical output record of a single refactor request.
// It is built once by the pipeline and treated as read-only afterwards;
// anything that needs to hold on to it takes a Clone.
type Result struct {
	ID             string       `json:"id"`
	Timestamp      string       `json:"timestamp"`
	OriginalCode   string       `json:"original_code"`
	RefactoredCode string       `json:"refactored_code"`
	Explanation    string       `json:"explanation"`
	SmellDetected  *string      `json:"smell_detected"`
	Metrics        Metrics      `json:"metrics"`
	Language       string       `json:"language"`
	AnalysisType   AnalysisType `json:"analysis_type"`
	SafetyStatus   SafetyStatus `json:"safety_status,omitempty"`
	RefactorType   string       `json:"refactor_type,omitempty"`
	Error          bool         `json:"error,omitempty"`
	RawOutput      string       `json:"raw_output,omitempty"`
}

// Metrics holds the quality estimates attached to a Result.
type Metrics struct {
	ComplexityBefore      float64 `json:"complexity_before"`
	ComplexityAfter       float64 `json:"complexity_after"`
	TimeComplexityBefore  string  `json:"time_complexity_before"`
	TimeComplexityAfter   string  `json:"time_complexity_after"`
	RiskScore             float64 `json:"risk_score"`
	MaintainabilityRating string  `json:"maintainability_rating"`
	LinesSaved            float64 `json:"lines_saved"`
	ComplexityReduction   string  `json:"complexity_reduction,omitempty"`
	SecurityLevel         string  `json:"security_level,omitempty"`
	// HealingAttempts is only set when the self-healing loop ran.
	HealingAttempts *int `json:"healing_attempts,omitempty"`
}

// UnmarshalJSON accepts numeric metrics encoded either as JSON numbers or as
// quoted numeric strings, since models emit both. Unparseable values decode to zero.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw struct {
		ComplexityBefore      flexNumber `json:"complexity_before"`
		ComplexityAfter       flexNumber `json:"complexity_after"`
		TimeComplexityBefore  FlexString `json:"time_complexity_before"`
		TimeComplexityAfter   FlexString `json:"time_complexity_after"`
		RiskScore             flexNumber `json:"risk_score"`
		MaintainabilityRating FlexString `json:"maintainability_rating"`
		LinesSaved            flexNumber `json:"lines_saved"`
		ComplexityReduction   FlexString `json:"complexity_reduction"`
		SecurityLevel         FlexString `json:"security_level"`
		HealingAttempts       *int       `json:"healing_attempts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Metrics{
		ComplexityBefore:      float64(raw.ComplexityBefore),
		ComplexityAfter:       float64(raw.ComplexityAfter),
		TimeComplexityBefore:  string(raw.TimeComplexityBefore),
		TimeComplexityAfter:   string(raw.TimeComplexityAfter),
		RiskScore:             clampRisk(float64(raw.RiskScore)),
		MaintainabilityRating: string(raw.MaintainabilityRating),
		LinesSaved:            float64(raw.LinesSaved),
		ComplexityReduction:   string(raw.ComplexityReduction),
		SecurityLevel:         string(raw.SecurityLevel),
		HealingAttempts:       raw.HealingAttempts,
	}
	return nil
}

func clampRisk(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// flexNumber decodes a number, a numeric string, or anything else as 0.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(v)
	return nil
}

// FlexString decodes a string, an array of strings joined with "; ", or the
// literal text of any other value. It never fails.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var parts []string
	if err := json.Unmarshal(data, &parts); err == nil {
		*f = FlexString(strings.Join(parts, "; "))
		return nil
	}
	t := strings.TrimSpace(string(data))
	if t == "null" {
		t = ""
	}
	*f = FlexString(t)
	return nil
}

// Clone returns a deep copy of the Result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.SmellDetected != nil {
		s := *r.SmellDetected
		c.SmellDetected = &s
	}
	if r.Metrics.HealingAttempts != nil {
		n := *r.Metrics.HealingAttempts
		c.Metrics.HealingAttempts = &n
	}
	return &c
}

// Smell returns the detected smell label, or "" when none was reported.
func (r *Result) Smell() string {
	if r == nil || r.SmellDetected == nil {
		return ""
	}
	return *r.SmellDetected
}

// StringPtr is a small helper for populating optional string fields.
func StringPtr(s string) *string { return &s }

// IntPtr is a small helper for populating optional integer fields.
func IntPtr(n int) *int { return &n }
