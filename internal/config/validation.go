package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"slices"

	"github.com/google/uuid"
)

// Validate validates configuration values shared by every mode.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and API key validation
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q, must be one of: %v",
			ErrInvalidProvider, c.Provider, []string{ProviderOpenAI, ProviderGoogleAI})
	}

	// 2. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 3. Retrieval configuration validation
	if c.ChatTopK < 1 || c.ChatTopK > 20 {
		return fmt.Errorf("%w: chat_top_k must be between 1 and 20, got %d", ErrInvalidTopK, c.ChatTopK)
	}

	if c.VoiceTopK < 1 || c.VoiceTopK > 20 {
		return fmt.Errorf("%w: voice_top_k must be between 1 and 20, got %d", ErrInvalidTopK, c.VoiceTopK)
	}

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("%w: must be in [0, 1), got %.2f", ErrInvalidThreshold, c.SimilarityThreshold)
	}

	// 4. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}

	// Warn on the default dev password but don't block local development
	if c.PostgresPassword == "clonebrain_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// 5. PostgreSQL SSL mode validation
	// Modern SSL modes only; 'allow' and 'prefer' are deprecated (MITM vulnerable)
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}

	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// ValidateServe validates the additional configuration serve mode needs on top
// of Validate(): the auth provider endpoint and the listen address.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.AuthUserURL == "" {
		return fmt.Errorf("%w: auth_user_url must be set for serve mode "+
			"(e.g. https://<project>.supabase.co/auth/v1/user)", ErrInvalidAuthEndpoint)
	}

	parsed, err := url.Parse(c.AuthUserURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidAuthEndpoint, c.AuthUserURL)
	}

	if _, _, err := net.SplitHostPort(c.ServerAddr); err != nil {
		return fmt.Errorf("%w: %q must be host:port", ErrInvalidServerAddr, c.ServerAddr)
	}

	return nil
}

// ValidateMCP validates the additional configuration the stdio MCP server
// needs: the owner identity its tools act as.
func (c *Config) ValidateMCP() (uuid.UUID, error) {
	if err := c.Validate(); err != nil {
		return uuid.Nil, err
	}

	owner, err := uuid.Parse(c.MCPOwnerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("mcp_owner_id must be a UUID (set CLONEBRAIN_MCP_OWNER_ID): %w", err)
	}

	return owner, nil
}
