// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
)

// NewClient is a factory function that creates an LLMClient based on the configuration.
// A missing API key is not an error here; the returned client reports
// ErrNoCredentials on each call until a key is set on keys.
func NewClient(cfg config.LLMConfig, keys *KeyStore, logger *zap.Logger) (schemas.LLMClient, error) {
	if keys == nil {
		keys = NewKeyStore(cfg.APIKey)
	}

	switch cfg.Provider {
	case config.ProviderOpenRouter, config.ProviderOpenAI:
		return NewOpenAIClient(cfg, keys, logger), nil
	case config.ProviderGemini:
		return NewGeminiClient(cfg, keys, logger), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s, %s]",
			cfg.Provider, config.ProviderOpenRouter, config.ProviderOpenAI, config.ProviderGemini)
	}
}
