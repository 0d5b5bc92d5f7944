// Package config provides configuration loading and validation for the API
// server. It uses koanf to merge environment variables with optional file
// overrides; environment variables take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Storage. An empty DatabaseURL selects the in-memory repositories;
	// an empty RedisURL disables the result cache.
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// JWT authentication
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// Matching behavior
	MatchPreset       string        `koanf:"match_preset"`
	CalibrationPath   string        `koanf:"calibration_path"`
	PassPolicy        string        `koanf:"pass_policy"`
	AgeToleranceYears int           `koanf:"age_tolerance_years"`
	ActivityHalfLife  time.Duration `koanf:"activity_half_life"`
	OnlineWindow      time.Duration `koanf:"online_window"`
	NewUserWindow     time.Duration `koanf:"new_user_window"`

	// Result cache
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	CacheEnabled bool          `koanf:"cache_enabled"`

	// Avatar similarity
	EmbeddingEnabled bool `koanf:"embedding_enabled"`

	// HTTP surface
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Tracing
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
}

// Configuration validation errors.
var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	ErrInvalidPort      = errors.New("PORT must be a valid integer")
	ErrInvalidPolicy    = errors.New("PASS_POLICY must be exclude or penalize")
	ErrInvalidDuration  = errors.New("duration values must be positive")
)

// Default values for non-secret configuration.
const (
	DefaultPort             = 8080
	DefaultEnv              = "development"
	DefaultMatchPreset      = "balanced"
	DefaultPassPolicy       = "exclude"
	DefaultAgeTolerance     = 5
	DefaultActivityHalfLife = 7 * 24 * time.Hour
	DefaultOnlineWindow     = 30 * time.Minute
	DefaultNewUserWindow    = 7 * 24 * time.Hour
	DefaultCacheTTL         = 30 * time.Second
)

// Load reads configuration from environment variables and an optional YAML
// file. Environment variables take precedence over file values. Returns the
// loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, err := envInt("PORT", k.Int("port"), DefaultPort)
	if err != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidPort, err))
	}
	ageTolerance, err := envInt("AGE_TOLERANCE_YEARS", k.Int("age_tolerance_years"), DefaultAgeTolerance)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	halfLife, err := envDuration(k, "ACTIVITY_HALF_LIFE", "activity_half_life", DefaultActivityHalfLife)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	onlineWindow, err := envDuration(k, "ONLINE_WINDOW", "online_window", DefaultOnlineWindow)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	newUserWindow, err := envDuration(k, "NEW_USER_WINDOW", "new_user_window", DefaultNewUserWindow)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	cacheTTL, err := envDuration(k, "CACHE_TTL", "cache_ttl", DefaultCacheTTL)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		Port:               port,
		Env:                envString("ENV", k.String("env"), DefaultEnv),
		DatabaseURL:        envString("DATABASE_URL", k.String("database_url"), ""),
		RedisURL:           envString("REDIS_URL", k.String("redis_url"), ""),
		JWTSecret:          envString("JWT_SECRET", k.String("jwt_secret"), ""),
		JWTPreviousSecret:  envString("JWT_PREVIOUS_SECRET", k.String("jwt_previous_secret"), ""),
		MatchPreset:        envString("MATCH_PRESET", k.String("match_preset"), DefaultMatchPreset),
		CalibrationPath:    envString("CALIBRATION_PATH", k.String("calibration_path"), ""),
		PassPolicy:         envString("PASS_POLICY", k.String("pass_policy"), DefaultPassPolicy),
		AgeToleranceYears:  ageTolerance,
		ActivityHalfLife:   halfLife,
		OnlineWindow:       onlineWindow,
		NewUserWindow:      newUserWindow,
		CacheTTL:           cacheTTL,
		CacheEnabled:       envBool(k, "CACHE_ENABLED", "cache_enabled", true),
		EmbeddingEnabled:   envBool(k, "EMBEDDING_ENABLED", "embedding_enabled", false),
		CORSAllowedOrigins: envStringSlice(k, "CORS_ALLOWED_ORIGINS", "cors_allowed_origins"),
		TracingEnabled:     envBool(k, "TRACING_ENABLED", "tracing_enabled", false),
		OTLPEndpoint:       envString("OTLP_ENDPOINT", k.String("otlp_endpoint"), ""),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// envString returns the environment variable value if set, otherwise the
// file value, or the default.
func envString(envKey, fileVal, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if fileVal != "" {
		return fileVal
	}
	return defaultVal
}

func envInt(envKey string, fileVal, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid integer", envKey)
		}
		return i, nil
	}
	if fileVal != 0 {
		return fileVal, nil
	}
	return defaultVal, nil
}

func envDuration(k *koanf.Koanf, envKey, fileKey string, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid duration: %w", envKey, err)
		}
		return d, nil
	}
	if k.Exists(fileKey) {
		return k.Duration(fileKey), nil
	}
	return defaultVal, nil
}

func envBool(k *koanf.Koanf, envKey, fileKey string, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	if k.Exists(fileKey) {
		return k.Bool(fileKey)
	}
	return defaultVal
}

func envStringSlice(k *koanf.Koanf, envKey, fileKey string) []string {
	if val := os.Getenv(envKey); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return k.Strings(fileKey)
}

// Validate checks that required configuration values are present and
// consistent. Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.PassPolicy != "exclude" && c.PassPolicy != "penalize" {
		errs = append(errs, ErrInvalidPolicy)
	}
	for _, d := range []time.Duration{c.ActivityHalfLife, c.OnlineWindow, c.NewUserWindow, c.CacheTTL} {
		if d <= 0 {
			errs = append(errs, ErrInvalidDuration)
			break
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                fmt.Sprintf("%d", c.Port),
		"env":                 c.Env,
		"database_url":        maskDatabaseURL(c.DatabaseURL),
		"redis_url":           maskDatabaseURL(c.RedisURL),
		"jwt_secret":          maskSecret(c.JWTSecret),
		"match_preset":        c.MatchPreset,
		"calibration_path":    c.CalibrationPath,
		"pass_policy":         c.PassPolicy,
		"age_tolerance_years": fmt.Sprintf("%d", c.AgeToleranceYears),
		"activity_half_life":  c.ActivityHalfLife.String(),
		"online_window":       c.OnlineWindow.String(),
		"new_user_window":     c.NewUserWindow.String(),
		"cache_ttl":           c.CacheTTL.String(),
		"cache_enabled":       fmt.Sprintf("%t", c.CacheEnabled),
		"embedding_enabled":   fmt.Sprintf("%t", c.EmbeddingEnabled),
		"tracing_enabled":     fmt.Sprintf("%t", c.TracingEnabled),
		"otlp_endpoint":       c.OTLPEndpoint,
	}
}

// maskSecret masks a secret value, showing only the first 4 characters.
// Secrets shorter than 8 characters are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
