// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, CLONEBRAIN_* prefix)
//  2. Config file (~/.clonebrain/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider, generation model, embedder model, audio models
//   - Storage: PostgreSQL connection (see storage.go)
//   - Auth: auth provider endpoint used to resolve bearer tokens
//   - Server: listen address, proxy trust
//   - Observability: OTLP trace export
//
// Security: sensitive values (passwords, API keys) are masked in MarshalJSON.
//
// Error handling uses sentinel errors checked with errors.Is(), wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates a retrieval top-K value is out of range.
	ErrInvalidTopK = errors.New("invalid retrieval top-k")

	// ErrInvalidThreshold indicates the similarity threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidAuthEndpoint indicates the auth provider endpoint is invalid.
	ErrInvalidAuthEndpoint = errors.New("invalid auth endpoint")

	// ErrInvalidServerAddr indicates the server listen address is invalid.
	ErrInvalidServerAddr = errors.New("invalid server address")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Model defaults. The embedder produces 1536-dimension vectors; the
// knowledge_base schema depends on that dimension.
const (
	DefaultModelName     = "gpt-4o"
	DefaultEmbedderModel = "text-embedding-3-small"
	DefaultSTTModel      = "whisper-1"
	DefaultTTSModel      = "tts-1"
	DefaultTTSVoice      = "alloy"
)

// Retrieval defaults.
const (
	DefaultChatTopK  = 5
	DefaultVoiceTopK = 3

	// DefaultSimilarityThreshold excludes weakly related chunks from prompts.
	DefaultSimilarityThreshold = 0.5
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`             // "openai" (default) or "googleai"
	ModelName     string `mapstructure:"model_name" json:"model_name"`         // generation model (e.g. "gpt-4o")
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"` // embedding model (e.g. "text-embedding-3-small")

	// Audio models (voice endpoint)
	STTModel string `mapstructure:"stt_model" json:"stt_model"`
	TTSModel string `mapstructure:"tts_model" json:"tts_model"`
	TTSVoice string `mapstructure:"tts_voice" json:"tts_voice"`

	// Retrieval configuration
	ChatTopK            int     `mapstructure:"chat_top_k" json:"chat_top_k"`
	VoiceTopK           int     `mapstructure:"voice_top_k" json:"voice_top_k"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Auth provider configuration (serve mode).
	// AuthUserURL is the endpoint that resolves a bearer token to a user,
	// e.g. https://<project>.supabase.co/auth/v1/user
	AuthUserURL string `mapstructure:"auth_user_url" json:"auth_user_url"`
	AuthAPIKey  string `mapstructure:"auth_api_key" json:"auth_api_key"` // SENSITIVE: masked in MarshalJSON

	// Server configuration (serve mode)
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`
	TrustProxy bool   `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)

	// Observability configuration
	Otel OtelConfig `mapstructure:"otel" json:"otel"`

	// MCP configuration: the owner identity the stdio MCP tools operate as.
	MCPOwnerID string `mapstructure:"mcp_owner_id" json:"mcp_owner_id"`
}

// OtelConfig holds OTLP trace export configuration.
// Tracing is disabled when Endpoint is empty.
type OtelConfig struct {
	// Endpoint is the OTLP/HTTP collector endpoint (host:port, no scheme)
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment" json:"environment"`
	// ServiceName is the service name on exported spans (default: clonebrain)
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".clonebrain")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes precedence over individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Fail fast
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderOpenAI)
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("stt_model", DefaultSTTModel)
	viper.SetDefault("tts_model", DefaultTTSModel)
	viper.SetDefault("tts_voice", DefaultTTSVoice)

	// Retrieval defaults
	viper.SetDefault("chat_top_k", DefaultChatTopK)
	viper.SetDefault("voice_top_k", DefaultVoiceTopK)
	viper.SetDefault("similarity_threshold", DefaultSimilarityThreshold)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "clonebrain")
	viper.SetDefault("postgres_password", "clonebrain_dev_password")
	viper.SetDefault("postgres_db_name", "clonebrain")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	viper.SetDefault("server_addr", "localhost:8080")
	viper.SetDefault("trust_proxy", false)

	// Observability defaults (endpoint empty: tracing disabled)
	viper.SetDefault("otel.environment", "dev")
	viper.SetDefault("otel.service_name", "clonebrain")
}

// bindEnvVariables binds environment variable overrides explicitly.
// Secrets (OPENAI_API_KEY, GEMINI_API_KEY) are read directly by the Genkit
// plugins and the OpenAI client, not via Viper; Validate() checks their
// presence for the selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "CLONEBRAIN_PROVIDER")
	mustBind("model_name", "CLONEBRAIN_MODEL_NAME")
	mustBind("embedder_model", "CLONEBRAIN_EMBEDDER_MODEL")
	mustBind("stt_model", "CLONEBRAIN_STT_MODEL")
	mustBind("tts_model", "CLONEBRAIN_TTS_MODEL")
	mustBind("tts_voice", "CLONEBRAIN_TTS_VOICE")

	mustBind("chat_top_k", "CLONEBRAIN_CHAT_TOP_K")
	mustBind("voice_top_k", "CLONEBRAIN_VOICE_TOP_K")
	mustBind("similarity_threshold", "CLONEBRAIN_SIMILARITY_THRESHOLD")

	mustBind("postgres_host", "CLONEBRAIN_POSTGRES_HOST")
	mustBind("postgres_port", "CLONEBRAIN_POSTGRES_PORT")
	mustBind("postgres_user", "CLONEBRAIN_POSTGRES_USER")
	mustBind("postgres_password", "CLONEBRAIN_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "CLONEBRAIN_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "CLONEBRAIN_POSTGRES_SSL_MODE")

	mustBind("auth_user_url", "CLONEBRAIN_AUTH_USER_URL")
	mustBind("auth_api_key", "CLONEBRAIN_AUTH_API_KEY")

	mustBind("server_addr", "CLONEBRAIN_SERVER_ADDR")
	mustBind("trust_proxy", "CLONEBRAIN_TRUST_PROXY")

	mustBind("otel.endpoint", "CLONEBRAIN_OTEL_ENDPOINT")
	mustBind("otel.environment", "CLONEBRAIN_OTEL_ENVIRONMENT")
	mustBind("otel.service_name", "CLONEBRAIN_OTEL_SERVICE_NAME")

	mustBind("mcp_owner_id", "CLONEBRAIN_MCP_OWNER_ID")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid accidental substring matches against the
// real secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
//
// THREAT MODEL: this defends against accidental logging of real secrets.
// If logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - AuthAPIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.AuthAPIKey = maskSecret(a.AuthAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o", "googleai/gemini-2.5-flash".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderGoogleAI:
		return ProviderGoogleAI + "/" + c.ModelName
	default:
		return ProviderOpenAI + "/" + c.ModelName
	}
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
