// Package adapters holds the fixed set of language profiles that parameterize
// prompt generation and smell detection.
package adapters

import (
	"strings"
)

// Family groups profiles that share comment syntax and textual rewrites.
type Family int

const (
	FamilyECMAScript Family = iota
	FamilyPython
	FamilyJava
)

// CommentPrefix returns the single-line comment marker for the family.
func (f Family) CommentPrefix() string {
	if f == FamilyPython {
		return "#"
	}
	return "//"
}

// Profile is an immutable bundle of language-specific style rules.
type Profile struct {
	Name        string
	Family      Family
	Extensions  []string
	StyleGuide  string
	KnownSmells []string
	Constraints []string
}

// Names of the built-in profiles.
const (
	JavaScript = "JavaScript"
	React      = "React"
	Python     = "Python"
	Java       = "Java"
)

// registry is ordered: name matching walks it front to back, so "javascript"
// resolves before "java" can match as a substring.
var registry = []Profile{
	{
		Name:       JavaScript,
		Family:     FamilyECMAScript,
		Extensions: []string{".js", ".mjs", ".cjs"},
		StyleGuide: "Modern ES6+, async/await, arrow functions where appropriate, prefer const/let over var.",
		KnownSmells: []string{
			"Var usage (prefer let/const)",
			"Callback hell (prefer async/await)",
			"Long functions (> 20 lines)",
			"Deep nesting (> 3 levels)",
			"Console logs left in production code",
			"Magic numbers",
			"Inefficient loops",
		},
		Constraints: []string{
			"Do NOT change external function signatures (exports).",
			"Do NOT remove comments that explain business logic.",
			"Ensure strict equality (===) usage.",
		},
	},
	{
		Name:       React,
		Family:     FamilyECMAScript,
		Extensions: []string{".jsx", ".tsx"},
		StyleGuide: "Functional Components, Hooks (useEffect, useState), strictly no Class Components.",
		KnownSmells: []string{
			"Direct DOM manipulation",
			"Missing dependency arrays in useEffect",
			"Prop drilling",
			"Inline heavy computations",
			"Unused props/state",
		},
		Constraints: []string{
			"Preserve component structure.",
			"Ensure React is imported if needed (though modern React doesn't always need it).",
			"Keep Hooks at the top level.",
		},
	},
	{
		Name:       Python,
		Family:     FamilyPython,
		Extensions: []string{".py"},
		StyleGuide: "PEP 8 compliant, type hinting (Python 3.5+), vectorized operations where possible.",
		KnownSmells: []string{
			"Mutable default arguments",
			"Wildcard imports (from module import *)",
			"Bare except clauses",
			"Complex list comprehensions",
			"Global variables",
		},
		Constraints: []string{
			"Respect whitespace/indentation perfectly.",
			"Use docstrings for functions.",
		},
	},
	{
		Name:       Java,
		Family:     FamilyJava,
		Extensions: []string{".java"},
		StyleGuide: "Google Java Style, dependency injection, Streams API where appropriate.",
		KnownSmells: []string{
			"Public fields (encapsulation violation)",
			"God classes",
			"Empty catch blocks",
			"Null checks everywhere (prefer Optional)",
		},
		Constraints: []string{
			"Keep class structure intact.",
			"Use proper camelCase for methods.",
		},
	},
}

// Lookup resolves a language name or filename to a profile. It never fails:
// unknown identifiers resolve to the JavaScript profile.
func Lookup(identifier string) Profile {
	input := strings.ToLower(strings.TrimSpace(identifier))
	if input == "" {
		return Default()
	}

	for i := range registry {
		if strings.Contains(input, strings.ToLower(registry[i].Name)) {
			return registry[i].clone()
		}
	}

	bare := strings.TrimPrefix(input, ".")
	for i := range registry {
		for _, ext := range registry[i].Extensions {
			if strings.HasSuffix(input, ext) || bare == strings.TrimPrefix(ext, ".") {
				return registry[i].clone()
			}
		}
	}

	return Default()
}

// Default returns the fallback profile.
func Default() Profile {
	return registry[0].clone()
}

// All returns every registered profile in lookup order.
func All() []Profile {
	out := make([]Profile, len(registry))
	for i := range registry {
		out[i] = registry[i].clone()
	}
	return out
}

// DetectLanguage guesses a language from code when the caller supplied none.
func DetectLanguage(code string) string {
	switch {
	case strings.Contains(code, "import React"):
		return "react"
	case strings.Contains(code, "public class"):
		return "java"
	case strings.Contains(code, "def "):
		return "python"
	default:
		return "javascript"
	}
}

// clone copies the slices so callers cannot mutate the registry.
func (p Profile) clone() Profile {
	p.Extensions = append([]string(nil), p.Extensions...)
	p.KnownSmells = append([]string(nil), p.KnownSmells...)
	p.Constraints = append([]string(nil), p.Constraints...)
	return p
}
