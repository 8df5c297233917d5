// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.pasabayan/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Assistant: completion model, max tokens, tool-round cap
//   - Gateway: downstream marketplace API base URL, service credential, timeout
//   - Auth: admin and developer secrets for privileged chat modes
//   - Store: conversation store backend (memory or postgres)
//   - Serve: CORS origins, proxy trust, rate limiting
//
// Sensitive values (API keys, tokens, DATABASE_URL) are never logged; they are
// masked in MarshalJSON and String.
//
// Error handling uses sentinel errors so callers can check with errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAnthropicKey indicates ANTHROPIC_API_KEY is not set.
	ErrMissingAnthropicKey = errors.New("missing Anthropic API key")

	// ErrMissingGatewayURL indicates the marketplace gateway base URL is not set.
	ErrMissingGatewayURL = errors.New("missing gateway URL")

	// ErrInvalidGatewayURL indicates the gateway base URL is not a valid absolute URL.
	ErrInvalidGatewayURL = errors.New("invalid gateway URL")

	// ErrInvalidMaxTokens indicates the completion max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxToolRounds indicates the tool-round cap is out of range.
	ErrInvalidMaxToolRounds = errors.New("invalid max tool rounds")

	// ErrInvalidStoreBackend indicates an unknown conversation store backend.
	ErrInvalidStoreBackend = errors.New("invalid store backend")

	// ErrMissingDatabaseURL indicates the postgres store backend was selected
	// without a DATABASE_URL.
	ErrMissingDatabaseURL = errors.New("missing database URL")
)

// Conversation store backend identifiers used in Config.StoreBackend.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

const (
	// DefaultModel is the completion model driving the assistant.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens is the per-completion output token budget.
	DefaultMaxTokens = 4096

	// DefaultMaxToolRounds bounds the tool-use loop within a single turn.
	DefaultMaxToolRounds = 10
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (tokens, keys, connection strings),
// update MarshalJSON.
type Config struct {
	// Assistant configuration
	Model           string `mapstructure:"model" json:"model"`
	MaxTokens       int    `mapstructure:"max_tokens" json:"max_tokens"`
	MaxToolRounds   int    `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"` // SENSITIVE: masked in MarshalJSON
	AnthropicURL    string `mapstructure:"anthropic_url" json:"anthropic_url"`         // Optional override, e.g. a proxy

	// Marketplace gateway configuration
	GatewayURL     string `mapstructure:"gateway_url" json:"gateway_url"`
	ServiceToken   string `mapstructure:"service_token" json:"service_token"` // SENSITIVE: masked in MarshalJSON
	GatewayTimeout int    `mapstructure:"gateway_timeout" json:"gateway_timeout"`

	// Privileged-mode secrets
	AdminToken     string `mapstructure:"admin_token" json:"admin_token"`         // SENSITIVE: masked in MarshalJSON
	DeveloperToken string `mapstructure:"developer_token" json:"developer_token"` // SENSITIVE: masked in MarshalJSON

	// Conversation store configuration
	StoreBackend string `mapstructure:"store_backend" json:"store_backend"`
	DatabaseURL  string `mapstructure:"database_url" json:"database_url"` // SENSITIVE: masked in MarshalJSON

	// Serve configuration
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".pasabayan")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("max_tokens", DefaultMaxTokens)
	viper.SetDefault("max_tool_rounds", DefaultMaxToolRounds)

	viper.SetDefault("gateway_url", "http://localhost:8000")
	viper.SetDefault("gateway_timeout", 30)

	viper.SetDefault("store_backend", StoreMemory)

	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 30)
}

// bindEnvVariables binds environment variables explicitly.
// Secrets are only read from the environment, never from a config file that
// may be committed alongside deployments.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("anthropic_url", "ANTHROPIC_BASE_URL")

	mustBind("gateway_url", "PASABAYAN_GATEWAY_URL")
	mustBind("service_token", "PASABAYAN_SERVICE_TOKEN")

	mustBind("admin_token", "ADMIN_API_TOKEN")
	mustBind("developer_token", "DEVELOPER_API_TOKEN")

	mustBind("store_backend", "CHATD_STORE_BACKEND")
	mustBind("database_url", "DATABASE_URL")

	mustBind("cors_origins", "CHATD_CORS_ORIGINS")
	mustBind("trust_proxy", "CHATD_TRUST_PROXY")
	mustBind("rate_burst", "CHATD_RATE_BURST")
	mustBind("model", "CHATD_MODEL")
}

// Validate checks the configuration values every run mode needs.
func (c *Config) Validate() error {
	if c.MaxTokens < 1 || c.MaxTokens > 64000 {
		return fmt.Errorf("%w: %d (must be 1..64000)", ErrInvalidMaxTokens, c.MaxTokens)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > 50 {
		return fmt.Errorf("%w: %d (must be 1..50)", ErrInvalidMaxToolRounds, c.MaxToolRounds)
	}
	if c.GatewayURL == "" {
		return ErrMissingGatewayURL
	}
	u, err := url.Parse(c.GatewayURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidGatewayURL, c.GatewayURL)
	}
	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: store_backend is %q", ErrMissingDatabaseURL, StorePostgres)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreBackend, c.StoreBackend)
	}
	return nil
}

// ValidateServe checks values required to run the HTTP server, on top of Validate.
func (c *Config) ValidateServe() error {
	if c.AnthropicAPIKey == "" {
		return ErrMissingAnthropicKey
	}
	return nil
}

// DeveloperSecret returns the developer-mode secret, falling back to the
// admin secret when no dedicated developer token is configured.
func (c *Config) DeveloperSecret() string {
	if c.DeveloperToken != "" {
		return c.DeveloperToken
	}
	return c.AdminToken
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked; longer secrets show the
// first and last 2 characters for debug utility.
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
//   - AnthropicAPIKey
//   - ServiceToken
//   - AdminToken
//   - DeveloperToken
//   - DatabaseURL
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.AnthropicAPIKey = maskSecret(a.AnthropicAPIKey)
	a.ServiceToken = maskSecret(a.ServiceToken)
	a.AdminToken = maskSecret(a.AdminToken)
	a.DeveloperToken = maskSecret(a.DeveloperToken)
	a.DatabaseURL = maskSecret(a.DatabaseURL)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
