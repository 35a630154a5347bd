// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
)

// OpenRouterBaseURL is the OpenAI-compatible API root for OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint,
// OpenRouter included.
type OpenAIClient struct {
	keys       *KeyStore
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
}

// NewOpenAIClient initializes the client. The key is read from keys on every
// call so that runtime updates take effect without rebuilding the client.
func NewOpenAIClient(cfg config.LLMConfig, keys *KeyStore, logger *zap.Logger) *OpenAIClient {
	baseURL := cfg.Endpoint
	if baseURL == "" && cfg.Provider == config.ProviderOpenRouter {
		baseURL = OpenRouterBaseURL
	}

	headers := http.Header{}
	if cfg.Provider == config.ProviderOpenRouter {
		if cfg.Referer != "" {
			headers.Set("HTTP-Referer", cfg.Referer)
		}
		if cfg.Title != "" {
			headers.Set("X-Title", cfg.Title)
		}
	}

	return &OpenAIClient{
		keys:    keys,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   cfg.APITimeout,
			Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
		},
		logger: logger.Named("llm_client.openai"),
		config: cfg,
	}
}

// Generate sends a single chat completion request. It does not retry.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	key, err := c.keys.Key()
	if err != nil {
		return "", err
	}

	clientCfg := openai.DefaultConfig(key)
	if c.baseURL != "" {
		clientCfg.BaseURL = c.baseURL
	}
	clientCfg.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	startTime := time.Now()
	resp, err := client.CreateChatCompletion(ctx, c.buildRequest(req))
	duration := time.Since(startTime)
	if err != nil {
		mapped := mapOpenAIError(err)
		c.logger.Warn("Chat completion failed",
			zap.String("model", c.config.Model),
			zap.Duration("duration", duration),
			zap.Error(mapped),
		)
		return "", mapped
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("Chat completion received",
		zap.String("model", c.config.Model),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) buildRequest(req schemas.GenerationRequest) openai.ChatCompletionRequest {
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

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	out := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	}
	if req.Options.ForceJSONFormat {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return out
}

// Close implements schemas.LLMClient.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// mapOpenAIError converts SDK errors into ProviderError where an HTTP status is known.
func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &ProviderError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := strings.TrimSpace(string(reqErr.Body))
		if body == "" && reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &ProviderError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return fmt.Errorf("llm request failed: %w", err)
}

// headerTransport adds fixed headers to every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			r.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(r)
}
