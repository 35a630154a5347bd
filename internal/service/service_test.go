package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/mocks"
	"github.com/xkilldash9x/synapse/internal/pipeline"
	"github.com/xkilldash9x/synapse/internal/store"
)

type configOverrides struct {
	llm      config.LLMConfig
	sqlite   config.SQLiteConfig
	database config.DatabaseConfig
}

func newMockConfig(o configOverrides) *mocks.MockConfig {
	if o.llm.Provider == "" {
		o.llm = config.LLMConfig{
			Provider:    config.ProviderOpenRouter,
			Model:       "test-model",
			Temperature: 0.2,
			MaxTokens:   256,
			APITimeout:  time.Second,
		}
	}

	cfg := new(mocks.MockConfig)
	cfg.On("LLM").Return(o.llm).Maybe()
	cfg.On("SQLite").Return(o.sqlite).Maybe()
	cfg.On("Database").Return(o.database).Maybe()
	cfg.On("Persistence").Return(config.PersistenceConfig{Timeout: time.Second}).Maybe()
	cfg.On("Pipeline").Return(config.PipelineConfig{
		MaxHealingAttempts: 2,
		AttemptTimeout:     time.Second,
		DefaultObjective:   "clean-code",
	}).Maybe()
	cfg.On("Auth").Return(config.AuthConfig{JWTSecret: "service-secret", TokenTTL: time.Hour}).Maybe()
	cfg.On("Server").Return(config.ServerConfig{
		ListenAddr:   "127.0.0.1:0",
		MaxBodyBytes: 1 << 20,
	}).Maybe()
	cfg.On("RateLimit").Return(config.RateLimitConfig{}).Maybe()
	return cfg
}

func TestCreate_FullGraphServesFallbackAndPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	cfg := newMockConfig(configOverrides{sqlite: config.SQLiteConfig{Enabled: true, Path: dbPath}})

	components, err := NewComponentFactory().Create(context.Background(), cfg, zaptest.NewLogger(t), Options{Persistence: true, HTTP: true})
	require.NoError(t, err)
	require.NotNil(t, components.Pipeline)
	require.NotNil(t, components.Gateway)
	require.NotNil(t, components.Server)
	assert.True(t, components.Issuer.Enabled())

	result := components.Pipeline.Run(context.Background(), pipeline.Request{Code: "var a = 1;\nconsole.log(a);", Language: "javascript"})
	assert.Equal(t, schemas.AnalysisSimulation, result.AnalysisType, "no key configured means simulation mode")

	rec := httptest.NewRecorder()
	components.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, components.Shutdown(context.Background()))

	reopened, err := store.OpenSQLite(context.Background(), dbPath, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	history, err := reopened.ListHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.ID, history[0].ID)
}

func TestCreate_WithoutPersistence(t *testing.T) {
	cfg := newMockConfig(configOverrides{})

	components, err := NewComponentFactory().Create(context.Background(), cfg, zap.NewNop(), Options{})
	require.NoError(t, err)
	assert.Nil(t, components.Gateway)
	assert.Nil(t, components.Server)
	assert.NotNil(t, components.Pipeline)
	assert.NoError(t, components.Shutdown(context.Background()))
}

func TestCreate_UnknownProviderFails(t *testing.T) {
	cfg := newMockConfig(configOverrides{llm: config.LLMConfig{Provider: "carrier-pigeon", Model: "m"}})

	components, err := NewComponentFactory().Create(context.Background(), cfg, zap.NewNop(), Options{Persistence: true})
	require.Error(t, err)
	assert.Nil(t, components)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestCreate_UnreachablePostgresIsSkipped(t *testing.T) {
	cfg := newMockConfig(configOverrides{
		database: config.DatabaseConfig{URL: "postgres://synapse@127.0.0.1:1/synapse?connect_timeout=1"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	components, err := NewComponentFactory().Create(ctx, cfg, zap.NewNop(), Options{Persistence: true})
	require.NoError(t, err)
	require.NotNil(t, components.Gateway)

	stats, err := components.Gateway.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalAnalyses)
	assert.NoError(t, components.Shutdown(context.Background()))
}

func TestInitializePostgres_InvalidURL(t *testing.T) {
	_, err := InitializePostgres(context.Background(), config.DatabaseConfig{URL: "postgres://%zz"}, zap.NewNop())
	assert.ErrorContains(t, err, "unable to parse PGX pool config")

	pg, err := InitializePostgres(context.Background(), config.DatabaseConfig{}, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, pg)
}

func TestInitializeSQLite_Disabled(t *testing.T) {
	s, err := InitializeSQLite(context.Background(), config.SQLiteConfig{Enabled: false, Path: "/unused"}, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestComponents_ShutdownJoinsErrors(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Close").Return(errors.New("close failed")).Once()

	c := &Components{LLM: client, logger: zap.NewNop()}
	err := c.Shutdown(context.Background())
	assert.ErrorContains(t, err, "close failed")
	client.AssertExpectations(t)

	empty := &Components{}
	assert.NoError(t, empty.Shutdown(context.Background()))
}
