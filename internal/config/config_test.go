package config

import (
	"testing"

	"github.com/spf13/viper"
)

// loadClean runs Load() against a temp HOME with no config file, so only
// defaults and CLONEBRAIN_* overrides apply.
func loadClean(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadClean(t)

	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderOpenAI)
	}
	if cfg.ModelName != DefaultModelName {
		t.Errorf("ModelName = %q, want %q", cfg.ModelName, DefaultModelName)
	}
	if cfg.ChatTopK != DefaultChatTopK {
		t.Errorf("ChatTopK = %d, want %d", cfg.ChatTopK, DefaultChatTopK)
	}
	if cfg.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("SimilarityThreshold = %v, want %v", cfg.SimilarityThreshold, DefaultSimilarityThreshold)
	}
	if cfg.PostgresHost != "localhost" {
		t.Errorf("PostgresHost = %q, want localhost", cfg.PostgresHost)
	}
	if cfg.TTSVoice != DefaultTTSVoice {
		t.Errorf("TTSVoice = %q, want %q", cfg.TTSVoice, DefaultTTSVoice)
	}
}

// TestLoad_EnvOverrides verifies every config family can be overridden from
// the environment, including retrieval tuning, audio models and postgres_*.
func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLONEBRAIN_MODEL_NAME", "gpt-4o-mini")
	t.Setenv("CLONEBRAIN_STT_MODEL", "whisper-large")
	t.Setenv("CLONEBRAIN_TTS_VOICE", "nova")
	t.Setenv("CLONEBRAIN_CHAT_TOP_K", "7")
	t.Setenv("CLONEBRAIN_VOICE_TOP_K", "2")
	t.Setenv("CLONEBRAIN_SIMILARITY_THRESHOLD", "0.7")
	t.Setenv("CLONEBRAIN_POSTGRES_HOST", "db.internal")
	t.Setenv("CLONEBRAIN_POSTGRES_PORT", "6432")
	t.Setenv("CLONEBRAIN_POSTGRES_PASSWORD", "env-password-1")
	t.Setenv("CLONEBRAIN_POSTGRES_SSL_MODE", "require")
	t.Setenv("CLONEBRAIN_OTEL_ENVIRONMENT", "staging")

	cfg := loadClean(t)

	if cfg.ModelName != "gpt-4o-mini" {
		t.Errorf("ModelName = %q, want env override", cfg.ModelName)
	}
	if cfg.STTModel != "whisper-large" {
		t.Errorf("STTModel = %q, want env override", cfg.STTModel)
	}
	if cfg.TTSVoice != "nova" {
		t.Errorf("TTSVoice = %q, want env override", cfg.TTSVoice)
	}
	if cfg.ChatTopK != 7 {
		t.Errorf("ChatTopK = %d, want 7", cfg.ChatTopK)
	}
	if cfg.VoiceTopK != 2 {
		t.Errorf("VoiceTopK = %d, want 2", cfg.VoiceTopK)
	}
	if cfg.SimilarityThreshold != 0.7 {
		t.Errorf("SimilarityThreshold = %v, want 0.7", cfg.SimilarityThreshold)
	}
	if cfg.PostgresHost != "db.internal" {
		t.Errorf("PostgresHost = %q, want db.internal", cfg.PostgresHost)
	}
	if cfg.PostgresPort != 6432 {
		t.Errorf("PostgresPort = %d, want 6432", cfg.PostgresPort)
	}
	if cfg.PostgresPassword != "env-password-1" {
		t.Errorf("PostgresPassword = %q, want env override", cfg.PostgresPassword)
	}
	if cfg.PostgresSSLMode != "require" {
		t.Errorf("PostgresSSLMode = %q, want require", cfg.PostgresSSLMode)
	}
	if cfg.Otel.Environment != "staging" {
		t.Errorf("Otel.Environment = %q, want staging", cfg.Otel.Environment)
	}
}
