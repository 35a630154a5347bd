// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
)

// GeminiClient implements schemas.LLMClient on top of the official genai SDK.
type GeminiClient struct {
	keys       *KeyStore
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
}

// NewGeminiClient initializes the client.
func NewGeminiClient(cfg config.LLMConfig, keys *KeyStore, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		keys:       keys,
		httpClient: &http.Client{Timeout: cfg.APITimeout},
		logger:     logger.Named("llm_client.gemini"),
		config:     cfg,
	}
}

// Generate sends the prompts to the Gemini API and returns the raw text. It does not retry.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	key, err := c.keys.Key()
	if err != nil {
		return "", err
	}

	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.config.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.config.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	startTime := time.Now()
	resp, err := client.Models.GenerateContent(ctx, c.config.Model,
		[]*genai.Content{genai.NewContentFromText(req.UserPrompt, genai.RoleUser)},
		c.buildConfig(req),
	)
	duration := time.Since(startTime)
	if err != nil {
		mapped := mapGenAIError(err)
		c.logger.Warn("GenerateContent failed",
			zap.String("model", c.config.Model),
			zap.Duration("duration", duration),
			zap.Error(mapped),
		)
		return "", mapped
	}

	if resp == nil {
		return "", ErrEmptyResponse
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("GenerateContent received", zap.String("model", c.config.Model), zap.Duration("duration", duration))
	return text, nil
}

func (c *GeminiClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = c.config.SystemPrompt
	}
	temperature := c.config.Temperature
	if req.Options.Temperature != nil {
		temperature = *req.Options.Temperature
	}
	maxTokens := c.config.MaxTokens
	if req.Options.MaxTokens > 0 {
		maxTokens = req.Options.MaxTokens
	}

	t := float32(temperature)
	gc := &genai.GenerateContentConfig{
		Temperature:     &t,
		MaxOutputTokens: int32(maxTokens),
	}
	if systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if req.Options.ForceJSONFormat {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

// Close implements schemas.LLMClient.
func (c *GeminiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func mapGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &ProviderError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code != 0 {
		return &ProviderError{StatusCode: apiErrPtr.Code, Body: apiErrPtr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}
