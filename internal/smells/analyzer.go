// Package smells runs cheap regex heuristics over source code before it is
// sent to the model. Findings are advisory and only shape the prompt.
package smells

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/synapse/internal/adapters"
)

// LongFileThreshold is the line count above which a file is flagged as too long.
const LongFileThreshold = 50

// Finding labels.
const (
	TooLong          = "Function/File potentially too long"
	LegacyVar        = "Legacy 'var' usage detected"
	DebugConsoleLog  = "Debug console.log detected"
	DeepNesting      = "Deep nesting detected"
	MissingDepsArray = "Possible missing dependency array in useEffect"
	BareExcept       = "Bare except clause detected (Pokemon exception handling)"
	PrintStatement   = "Print statement detected"
	SystemOutPrint   = "System.out.print usage"
	EmptyCatch       = "Empty catch block detected"
)

// rule is one pattern check. When flatten is set the pattern runs against the
// source with newlines removed.
type rule struct {
	pattern *regexp.Regexp
	label   string
	flatten bool
}

var (
	ecmaRules = []rule{
		{pattern: regexp.MustCompile(`\bvar\b`), label: LegacyVar},
		{pattern: regexp.MustCompile(`console\.log`), label: DebugConsoleLog},
		{pattern: regexp.MustCompile(`(for|if|while)\s*\(.*\)\s*\{\s*.*\s*(for|if|while)`), label: DeepNesting, flatten: true},
	}

	reactRules = []rule{
		{pattern: regexp.MustCompile(`(?s)useEffect\(\(\)\s*=>\s*\{.*\}\)`), label: MissingDepsArray},
	}

	pythonRules = []rule{
		{pattern: regexp.MustCompile(`except:`), label: BareExcept},
		{pattern: regexp.MustCompile(`print\(`), label: PrintStatement},
	}

	javaRules = []rule{
		{pattern: regexp.MustCompile(`System\.out\.print`), label: SystemOutPrint},
		{pattern: regexp.MustCompile(`catch\s*\(\w+\s+\w+\)\s*\{\s*\}`), label: EmptyCatch},
	}

	// rulesByProfile lists, per profile name, the rule sets applied in order.
	rulesByProfile = map[string][][]rule{
		adapters.JavaScript: {ecmaRules},
		adapters.React:      {ecmaRules, reactRules},
		adapters.Python:     {pythonRules},
		adapters.Java:       {javaRules},
	}
)

// Analyze returns the suspected issues in code, in detection order. The result
// depends only on its inputs. Duplicates are kept; empty code yields no findings.
func Analyze(code string, profile adapters.Profile) []string {
	findings := []string{}
	if code == "" {
		return findings
	}

	if len(strings.Split(code, "\n")) > LongFileThreshold {
		findings = append(findings, TooLong)
	}

	var flat string
	for _, set := range rulesByProfile[profile.Name] {
		for _, r := range set {
			target := code
			if r.flatten {
				if flat == "" {
					flat = strings.ReplaceAll(code, "\n", "")
				}
				target = flat
			}
			if r.pattern.MatchString(target) {
				findings = append(findings, r.label)
			}
		}
	}
	return findings
}
