// Package fallback produces the offline, clearly labeled demo Result used when
// no model is reachable. Everything here is pure: no I/O and no clock reads.
package fallback

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/adapters"
)

var varKeyword = regexp.MustCompile(`\bvar(\s)`)

var trailerLines = []string{
	"✨ [DEMO MODE] Code Analysis Complete",
	"In production, AI would refactor this code based on detected patterns.",
	"This is a simulation mode for demonstration purposes.",
}

// Generate builds the simulation Result for code under profile. ID and
// timestamp are left empty for the caller to stamp.
func Generate(code string, profile adapters.Profile) *schemas.Result {
	lines := len(strings.Split(code, "\n"))

	return &schemas.Result{
		OriginalCode:   code,
		RefactoredCode: rewrite(code, profile.Family) + trailer(profile.Family),
		Explanation:    explanation(profile.Name),
		SmellDetected:  schemas.StringPtr(fmt.Sprintf("Demo Analysis: %s code detected (%d lines)", profile.Name, lines)),
		Metrics:        metricsFor(lines),
		Language:       profile.Name,
		AnalysisType:   schemas.AnalysisSimulation,
	}
}

func metricsFor(lines int) schemas.Metrics {
	before := min(10, lines/5)
	after := max(1, lines/8)

	timeBefore := "O(n)"
	if lines > 20 {
		timeBefore = "O(n²)"
	}

	rating := "C"
	switch {
	case after <= 2:
		rating = "A"
	case after <= 5:
		rating = "B"
	}

	return schemas.Metrics{
		ComplexityBefore:      float64(before),
		ComplexityAfter:       float64(after),
		TimeComplexityBefore:  timeBefore,
		TimeComplexityAfter:   "O(n)",
		RiskScore:             5,
		MaintainabilityRating: rating,
		LinesSaved:            float64(lines * 15 / 100),
		ComplexityReduction:   "Medium",
		SecurityLevel:         "Safe",
	}
}

// rewrite applies the naive per-family substitutions line by line.
func rewrite(code string, family adapters.Family) string {
	lines := strings.Split(code, "\n")
	prefix := family.CommentPrefix()

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, prefix) {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

		switch family {
		case adapters.FamilyECMAScript:
			if strings.Contains(trimmed, "console.log(") {
				lines[i] = indent + prefix + " " + trimmed
				continue
			}
			lines[i] = varKeyword.ReplaceAllString(line, "let$1")
		case adapters.FamilyPython:
			if strings.HasPrefix(trimmed, "print(") {
				lines[i] = indent + prefix + " " + trimmed
			}
		case adapters.FamilyJava:
			if strings.Contains(trimmed, "System.out.print") {
				lines[i] = indent + prefix + " " + trimmed
			}
		}
	}
	return strings.Join(lines, "\n")
}

func trailer(family adapters.Family) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, l := range trailerLines {
		b.WriteString("\n")
		b.WriteString(family.CommentPrefix())
		b.WriteString(" ")
		b.WriteString(l)
	}
	return b.String()
}

func explanation(name string) string {
	return fmt.Sprintf("**Demo Mode Active** - This demonstrates Synapse's analysis capabilities. "+
		"In production with a valid API key, the AI would:\n\n"+
		"1. Detect code smells using %[1]s best practices\n"+
		"2. Apply %[1]s-specific refactoring patterns\n"+
		"3. Optimize for readability, performance, and maintainability\n"+
		"4. Validate the output for syntax correctness\n\n"+
		"*To see real AI refactoring, configure OPENROUTER_API_KEY or GEMINI_API_KEY in the .env file.*", name)
}
