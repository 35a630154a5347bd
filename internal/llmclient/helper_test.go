package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
)

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidLLMConfig returns a valid LLMConfig for testing purposes.
func getValidLLMConfig(provider string) config.LLMConfig {
	return config.LLMConfig{
		Provider:     provider,
		APIKey:       "test-api-key",
		Model:        "test-model",
		APITimeout:   5 * time.Second,
		Temperature:  0.2,
		MaxTokens:    256,
		SystemPrompt: config.DefaultSystemPrompt,
		Referer:      "https://example.test",
		Title:        "Synapse Test",
	}
}

// createTestRequest provides a standard generation request structure.
func createTestRequest() schemas.GenerationRequest {
	return schemas.GenerationRequest{
		UserPrompt: "Refactor this function.",
		Options:    schemas.GenerationOptions{ForceJSONFormat: true},
	}
}
