// internal/llmutil/parser.go
package llmutil

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// json is configured to behave exactly like encoding/json, including
// honoring custom UnmarshalJSON methods.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

const fence = "```"

// StripFences removes a leading ```json or ``` marker and a trailing ``` marker
// from a model response. Text without a leading fence is only trimmed.
func StripFences(response string) string {
	cleaned := strings.TrimSpace(response)
	if !strings.HasPrefix(cleaned, fence) {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, fence)
	// Tolerate any casing of the language tag.
	if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
		cleaned = cleaned[4:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), fence)
	return strings.TrimSpace(cleaned)
}

// ParseJSONResponse strips markdown fences from an LLM response and decodes the
// remainder into T. It does not try to recover JSON embedded in prose; a
// response that is not a single JSON document is an error.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := StripFences(response)

	var result T
	if err := json.UnmarshalFromString(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(payload, 500))
	}
	return &result, nil
}

// truncateString truncates a string to a maximum length in bytes.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Simple truncation; does not account for rune boundaries but sufficient for error logging.
	return s[:maxLen] + "..."
}
