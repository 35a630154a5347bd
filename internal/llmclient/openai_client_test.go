package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
)

// setupOpenAIClient points an OpenAIClient at a mock HTTP server.
func setupOpenAIClient(t *testing.T, provider string, handler http.HandlerFunc) (*OpenAIClient, *KeyStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := setupTestLogger(t)
	cfg := getValidLLMConfig(provider)
	cfg.Endpoint = server.URL
	keys := NewKeyStore(cfg.APIKey)

	client := NewOpenAIClient(cfg, keys, logger)
	t.Cleanup(func() { _ = client.Close() })
	return client, keys
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func TestOpenAIClient_Generate_Success(t *testing.T) {
	var captured map[string]any
	var headers http.Header

	client, _ := setupOpenAIClient(t, config.ProviderOpenRouter, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		writeCompletion(w, `{"refactored_code":"const a = 1;"}`)
	})

	out, err := client.Generate(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"refactored_code":"const a = 1;"}`, out)

	assert.Equal(t, "Bearer test-api-key", headers.Get("Authorization"))
	assert.Equal(t, "https://example.test", headers.Get("HTTP-Referer"))
	assert.Equal(t, "Synapse Test", headers.Get("X-Title"))

	assert.Equal(t, "test-model", captured["model"])
	assert.InDelta(t, 0.2, captured["temperature"], 0.0001)
	assert.EqualValues(t, 256, captured["max_tokens"])
	assert.Equal(t, map[string]any{"type": "json_object"}, captured["response_format"])

	msgs, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, config.DefaultSystemPrompt, msgs[0].(map[string]any)["content"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "Refactor this function.", msgs[1].(map[string]any)["content"])
}

func TestOpenAIClient_Generate_PlainOpenAIOmitsAttributionHeaders(t *testing.T) {
	client, _ := setupOpenAIClient(t, config.ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("HTTP-Referer"))
		assert.Empty(t, r.Header.Get("X-Title"))
		writeCompletion(w, "ok")
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	require.NoError(t, err)
}

func TestOpenAIClient_Generate_OptionsOverride(t *testing.T) {
	var captured map[string]any
	client, _ := setupOpenAIClient(t, config.ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		writeCompletion(w, "ok")
	})

	temp := 0.9
	req := createTestRequest()
	req.SystemPrompt = "custom system"
	req.Options = schemas.GenerationOptions{Temperature: &temp, MaxTokens: 42}

	_, err := client.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, captured["temperature"], 0.0001)
	assert.EqualValues(t, 42, captured["max_tokens"])
	assert.NotContains(t, captured, "response_format")
	msgs := captured["messages"].([]any)
	assert.Equal(t, "custom system", msgs[0].(map[string]any)["content"])
}

func TestOpenAIClient_Generate_APIErrorMapsToProviderError(t *testing.T) {
	client, _ := setupOpenAIClient(t, config.ProviderOpenRouter, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit"}}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.Equal(t, "rate limit exceeded", perr.Body)
	assert.True(t, IsTransient(err))
}

func TestOpenAIClient_Generate_NonJSONErrorBody(t *testing.T) {
	client, _ := setupOpenAIClient(t, config.ProviderOpenRouter, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.Equal(t, "upstream unavailable", perr.Body)
	assert.Equal(t, "AI API Error 502: upstream unavailable", err.Error())
}

func TestOpenAIClient_Generate_EmptyChoices(t *testing.T) {
	client, _ := setupOpenAIClient(t, config.ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_Generate_NoCredentialsSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	client, keys := setupOpenAIClient(t, config.ProviderOpenRouter, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCompletion(w, "ok")
	})
	keys.SetKey("")

	_, err := client.Generate(context.Background(), createTestRequest())
	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Zero(t, calls.Load())
}

func TestOpenAIClient_Generate_KeyRotationTakesEffect(t *testing.T) {
	var seen atomic.Value
	client, keys := setupOpenAIClient(t, config.ProviderOpenRouter, func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		writeCompletion(w, "ok")
	})

	keys.SetKey("sk-rotated")
	_, err := client.Generate(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-rotated", seen.Load())
}

func TestOpenAIClient_Generate_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	client, _ := setupOpenAIClient(t, config.ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Registered after the server's Cleanup, so it runs first and unblocks the handler.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, createTestRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
