// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Server() config.ServerConfig {
	args := m.Called()
	return args.Get(0).(config.ServerConfig)
}

func (m *MockConfig) RateLimit() config.RateLimitConfig {
	args := m.Called()
	return args.Get(0).(config.RateLimitConfig)
}

func (m *MockConfig) LLM() config.LLMConfig {
	args := m.Called()
	return args.Get(0).(config.LLMConfig)
}

func (m *MockConfig) Pipeline() config.PipelineConfig {
	args := m.Called()
	return args.Get(0).(config.PipelineConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) SQLite() config.SQLiteConfig {
	args := m.Called()
	return args.Get(0).(config.SQLiteConfig)
}

func (m *MockConfig) Persistence() config.PersistenceConfig {
	args := m.Called()
	return args.Get(0).(config.PersistenceConfig)
}

func (m *MockConfig) Auth() config.AuthConfig {
	args := m.Called()
	return args.Get(0).(config.AuthConfig)
}

// --- Setters ---

func (m *MockConfig) SetLLMAPIKey(key string)         { m.Called(key) }
func (m *MockConfig) SetServerListenAddr(addr string) { m.Called(addr) }

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface.
type MockLLMClient struct {
	mock.Mock
}

// Generate provides a mock function for LLM calls.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// -- Result Sink Mock --

// MockResultSink records every result handed to Save. It does not use
// testify expectations because Save is fire-and-forget.
type MockResultSink struct {
	mu      sync.Mutex
	Saved   []*schemas.Result
	UserIDs []string
}

func (m *MockResultSink) Save(result *schemas.Result, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, result.Clone())
	m.UserIDs = append(m.UserIDs, userID)
}

// Count returns how many results were saved.
func (m *MockResultSink) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saved)
}

// -- History Reader Mock --

// MockHistoryReader mocks the schemas.HistoryReader interface.
type MockHistoryReader struct {
	mock.Mock
}

func (m *MockHistoryReader) History(ctx context.Context, userID string, limit int) ([]schemas.HistoryEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.HistoryEntry), args.Error(1)
}

func (m *MockHistoryReader) Stats(ctx context.Context, userID string) (schemas.DashboardStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(schemas.DashboardStats), args.Error(1)
}
