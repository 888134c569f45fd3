package config

import (
	"testing"
)

// testSecretHash is a valid bcrypt hash used only to satisfy the required
// ML_TRAIN_SECRET_HASH variable; its plaintext is never checked here.
const testSecretHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ML_TRAIN_SECRET_HASH", testSecretHash)
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want local", cfg.Environment)
	}
	if cfg.Server.Port != "5001" {
		t.Errorf("Port = %q, want 5001", cfg.Server.Port)
	}
	if cfg.Models.Dir != "models" {
		t.Errorf("ModelsDir = %q, want models", cfg.Models.Dir)
	}
	if cfg.Training.SyntheticSamples != 500 {
		t.Errorf("SyntheticSamples = %d, want 500", cfg.Training.SyntheticSamples)
	}
	if len(cfg.Server.CorsAllowedOrigins) != 3 {
		t.Errorf("CorsAllowedOrigins = %v, want 3 entries", cfg.Server.CorsAllowedOrigins)
	}
}

func TestLoadConfigMissingSecretHash(t *testing.T) {
	t.Setenv("ML_TRAIN_SECRET_HASH", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation failure when ML_TRAIN_SECRET_HASH is unset")
	}
}

func TestLoadConfigRejectsBadEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production-ish")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation failure for unknown APP_ENV value")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("TRAINING_SYNTHETIC_SAMPLES", "250")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9999" {
		t.Errorf("Port = %q, want 9999", cfg.Server.Port)
	}
	if cfg.Training.SyntheticSamples != 250 {
		t.Errorf("SyntheticSamples = %d, want 250", cfg.Training.SyntheticSamples)
	}
}
