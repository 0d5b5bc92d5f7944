package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "ENV", "DATABASE_URL", "REDIS_URL", "JWT_SECRET",
		"JWT_PREVIOUS_SECRET", "MATCH_PRESET", "CALIBRATION_PATH",
		"PASS_POLICY", "AGE_TOLERANCE_YEARS", "ACTIVITY_HALF_LIFE",
		"ONLINE_WINDOW", "NEW_USER_WINDOW", "CACHE_TTL", "CACHE_ENABLED",
		"EMBEDDING_ENABLED", "CORS_ALLOWED_ORIGINS", "TRACING_ENABLED",
		"OTLP_ENDPOINT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// TestLoadDefaults verifies defaults apply when only the secret is set.
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "super-secret-value")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("port = %d, expected %d", cfg.Port, DefaultPort)
	}
	if cfg.Env != DefaultEnv {
		t.Errorf("env = %s, expected %s", cfg.Env, DefaultEnv)
	}
	if cfg.MatchPreset != DefaultMatchPreset {
		t.Errorf("preset = %s, expected %s", cfg.MatchPreset, DefaultMatchPreset)
	}
	if cfg.PassPolicy != DefaultPassPolicy {
		t.Errorf("pass policy = %s, expected %s", cfg.PassPolicy, DefaultPassPolicy)
	}
	if cfg.ActivityHalfLife != DefaultActivityHalfLife {
		t.Errorf("half life = %s, expected %s", cfg.ActivityHalfLife, DefaultActivityHalfLife)
	}
	if !cfg.CacheEnabled {
		t.Error("cache must default to enabled")
	}
	if cfg.EmbeddingEnabled {
		t.Error("embeddings must default to disabled")
	}
}

// TestLoadMissingSecret reports the required secret.
func TestLoadMissingSecret(t *testing.T) {
	clearEnv(t)

	_, errs := Load("")
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrMissingJWTSecret) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ErrMissingJWTSecret in %v", errs)
	}
}

// TestLoadEnvOverridesFile verifies env precedence over YAML values.
func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "port: 9000\npass_policy: penalize\nmatch_preset: nearby\ncache_ttl: 45s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("JWT_SECRET", "super-secret-value")
	t.Setenv("PORT", "9100")

	cfg, errs := Load(path)
	if len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}

	if cfg.Port != 9100 {
		t.Errorf("port = %d, env must win over file", cfg.Port)
	}
	if cfg.PassPolicy != "penalize" {
		t.Errorf("pass policy = %s, expected file value penalize", cfg.PassPolicy)
	}
	if cfg.MatchPreset != "nearby" {
		t.Errorf("preset = %s, expected file value nearby", cfg.MatchPreset)
	}
	if cfg.CacheTTL != 45*time.Second {
		t.Errorf("cache ttl = %s, expected 45s", cfg.CacheTTL)
	}
}

// TestLoadInvalidValues collects the validation errors.
func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "super-secret-value")
	t.Setenv("PASS_POLICY", "forgive")
	t.Setenv("ONLINE_WINDOW", "-5m")

	_, errs := Load("")
	var policy, duration bool
	for _, err := range errs {
		if errors.Is(err, ErrInvalidPolicy) {
			policy = true
		}
		if errors.Is(err, ErrInvalidDuration) {
			duration = true
		}
	}
	if !policy {
		t.Errorf("expected ErrInvalidPolicy in %v", errs)
	}
	if !duration {
		t.Errorf("expected ErrInvalidDuration in %v", errs)
	}
}

// TestCORSOriginsFromEnv parses the comma-separated list.
func TestCORSOriginsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "super-secret-value")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("unexpected validation errors: %v", errs)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}
}

// TestLogSummaryMasksSecrets verifies secrets never appear in the summary.
func TestLogSummaryMasksSecrets(t *testing.T) {
	cfg := &Config{
		Port:        8080,
		JWTSecret:   "super-secret-value",
		DatabaseURL: "postgres://app:hunter2@db:5432/pairwise",
	}

	summary := cfg.LogSummary()
	if strings.Contains(summary["jwt_secret"], "secret-value") {
		t.Errorf("jwt secret leaked: %s", summary["jwt_secret"])
	}
	if strings.Contains(summary["database_url"], "hunter2") {
		t.Errorf("database password leaked: %s", summary["database_url"])
	}
	if !strings.Contains(summary["database_url"], "app:****@") {
		t.Errorf("expected masked credentials, got %s", summary["database_url"])
	}
}
