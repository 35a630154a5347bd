// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Supported LLM providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

// DefaultSystemPrompt is sent as the system message on every generation.
const DefaultSystemPrompt = "You are an expert Senior code refactoring engine. Output ONLY valid JSON."

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Server() ServerConfig
	RateLimit() RateLimitConfig
	LLM() LLMConfig
	Pipeline() PipelineConfig
	Database() DatabaseConfig
	SQLite() SQLiteConfig
	Persistence() PersistenceConfig
	Auth() AuthConfig

	SetLLMAPIKey(key string)
	SetServerListenAddr(addr string)
}

// Config holds the entire application configuration.
// It uses private fields to enforce access through the Interface's getter methods.
type Config struct {
	logger      LoggerConfig
	server      ServerConfig
	rateLimit   RateLimitConfig
	llm         LLMConfig
	pipeline    PipelineConfig
	database    DatabaseConfig
	sqlite      SQLiteConfig
	persistence PersistenceConfig
	auth        AuthConfig
}

// fileConfig mirrors Config with exported fields so viper can decode into it.
type fileConfig struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Server      ServerConfig      `mapstructure:"server"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Database    DatabaseConfig    `mapstructure:"database"`
	SQLite      SQLiteConfig      `mapstructure:"sqlite"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.logger }
func (c *Config) Server() ServerConfig           { return c.server }
func (c *Config) RateLimit() RateLimitConfig     { return c.rateLimit }
func (c *Config) LLM() LLMConfig                 { return c.llm }
func (c *Config) Pipeline() PipelineConfig       { return c.pipeline }
func (c *Config) Database() DatabaseConfig       { return c.database }
func (c *Config) SQLite() SQLiteConfig           { return c.sqlite }
func (c *Config) Persistence() PersistenceConfig { return c.persistence }
func (c *Config) Auth() AuthConfig               { return c.auth }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetLLMAPIKey(key string)         { c.llm.APIKey = key }
func (c *Config) SetServerListenAddr(addr string) { c.server.ListenAddr = addr }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
	// AllowKeyUpdate enables the runtime API key endpoint.
	AllowKeyUpdate bool `mapstructure:"allow_key_update" yaml:"allow_key_update"`
}

// RateLimitConfig bounds how many requests one client IP may issue per window.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// LLMConfig selects and tunes the upstream model provider.
type LLMConfig struct {
	Provider     string        `mapstructure:"provider" yaml:"provider"`
	Model        string        `mapstructure:"model" yaml:"model"`
	APIKey       string        `mapstructure:"api_key" yaml:"-"`
	Endpoint     string        `mapstructure:"endpoint" yaml:"endpoint"`
	Temperature  float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout   time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	SystemPrompt string        `mapstructure:"system_prompt" yaml:"system_prompt"`
	// Referer and Title are forwarded as OpenRouter attribution headers.
	Referer string `mapstructure:"referer" yaml:"referer"`
	Title   string `mapstructure:"title" yaml:"title"`
}

// PipelineConfig tunes the refactor pipeline.
type PipelineConfig struct {
	MaxHealingAttempts   int           `mapstructure:"max_healing_attempts" yaml:"max_healing_attempts"`
	AttemptTimeout       time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
	RetryTransportErrors bool          `mapstructure:"retry_transport_errors" yaml:"retry_transport_errors"`
	CacheSize            int           `mapstructure:"cache_size" yaml:"cache_size"`
	DefaultObjective     string        `mapstructure:"default_objective" yaml:"default_objective"`
}

// DatabaseConfig holds the Postgres connection details for authenticated history.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SQLiteConfig holds the location of the anonymous history database.
type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// PersistenceConfig bounds background writes.
type PersistenceConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"-"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "synapse")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Server --
	v.SetDefault("server.listen_addr", ":5000")
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:5173",
		"http://localhost:5174",
		"https://synapserefactor.vercel.app",
	})
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.max_connections", 512)
	v.SetDefault("server.request_timeout", "150s")
	v.SetDefault("server.shutdown_grace", "10s")
	v.SetDefault("server.allow_key_update", false)

	// -- Rate Limit --
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "15m")

	// -- LLM --
	v.SetDefault("llm.provider", ProviderOpenRouter)
	v.SetDefault("llm.model", "google/gemini-2.0-flash-exp:free")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.system_prompt", DefaultSystemPrompt)
	v.SetDefault("llm.referer", "https://synapserefactor.vercel.app")
	v.SetDefault("llm.title", "Synapse Refactor")

	// -- Pipeline --
	v.SetDefault("pipeline.max_healing_attempts", 2)
	v.SetDefault("pipeline.attempt_timeout", "45s")
	v.SetDefault("pipeline.retry_transport_errors", false)
	v.SetDefault("pipeline.cache_size", 128)
	v.SetDefault("pipeline.default_objective", "clean-code")

	// -- Storage --
	v.SetDefault("database.url", "")
	v.SetDefault("sqlite.enabled", true)
	v.SetDefault("sqlite.path", "~/.synapse/history.db")
	v.SetDefault("persistence.timeout", "5s")

	// -- Auth --
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
}

// BindEnvironment wires the well-known environment variable names onto config keys,
// in addition to the SYNAPSE_ prefixed ones viper derives automatically.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix("SYNAPSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Errors from BindEnv only occur when no key is given.
	_ = v.BindEnv("llm.api_key", "SYNAPSE_LLM_API_KEY", "OPENROUTER_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("auth.jwt_secret", "SYNAPSE_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("database.url", "SYNAPSE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", "SYNAPSE_SERVER_PORT", "PORT")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// A bare PORT overrides the listen address, matching common PaaS conventions.
	if port := strings.TrimSpace(v.GetString("server.port")); port != "" {
		cfg.server.ListenAddr = ":" + strings.TrimPrefix(port, ":")
	}

	if cfg.sqlite.Path != "" {
		expanded, err := homedir.Expand(cfg.sqlite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand sqlite.path: %w", err)
		}
		cfg.sqlite.Path = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, err
	}
	return &Config{
		logger:      fc.Logger,
		server:      fc.Server,
		rateLimit:   fc.RateLimit,
		llm:         fc.LLM,
		pipeline:    fc.Pipeline,
		database:    fc.Database,
		sqlite:      fc.SQLite,
		persistence: fc.Persistence,
		auth:        fc.Auth,
	}, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be a positive integer")
	}
	if c.rateLimit.Enabled && (c.rateLimit.Requests <= 0 || c.rateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive when rate limiting is enabled")
	}
	if err := c.llm.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if err := c.pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline configuration invalid: %w", err)
	}
	if worst := c.pipeline.MaxRunDuration(); c.server.RequestTimeout > 0 && c.server.RequestTimeout <= worst {
		return fmt.Errorf("server.request_timeout (%s) must exceed the worst-case healing time of %s", c.server.RequestTimeout, worst)
	}
	if c.persistence.Timeout <= 0 {
		return fmt.Errorf("persistence.timeout must be a positive duration")
	}
	if c.auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be a positive duration")
	}
	return nil
}

// Validate checks the LLM configuration. A missing API key is not an error;
// the pipeline runs in simulation mode without one.
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown provider '%s'. Supported: [%s, %s, %s]", l.Provider, ProviderOpenRouter, ProviderOpenAI, ProviderGemini)
	}
	if l.Model == "" {
		return fmt.Errorf("model is required")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	if l.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be a positive duration")
	}
	return nil
}

// MaxRunDuration is the longest a healing loop can spend on model calls: the
// first attempt plus every correction, each bounded by AttemptTimeout.
func (p *PipelineConfig) MaxRunDuration() time.Duration {
	return time.Duration(p.MaxHealingAttempts+1) * p.AttemptTimeout
}

// Validate checks the PipelineConfig settings.
func (p *PipelineConfig) Validate() error {
	if p.MaxHealingAttempts < 0 {
		return fmt.Errorf("max_healing_attempts cannot be negative")
	}
	if p.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt_timeout must be a positive duration")
	}
	if p.CacheSize < 0 {
		return fmt.Errorf("cache_size cannot be negative")
	}
	return nil
}
