package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Version is reported by / and the MCP server. Release builds may
// override it via -ldflags.
var Version = "1.0.0"

// Config holds all runtime configuration for the core gateway.
// Values are read once at startup and never mutated afterwards.
type Config struct {
	Port int

	// Upstream inference backend.
	OllamaHost string
	ModelName  string

	// Credentials.
	APISecret          string
	JWTSecret          string
	TokenExpireMinutes int

	DBPath    string
	VoicesDir string

	// Sibling speech engines. Empty disables the route.
	TTSURL string
	STTURL string

	LogLevel  string // debug, info, warn, error
	LogFormat string // text or json
}

// Load reads configuration from viper, which merges flag values, env vars,
// and defaults (set up by the cobra command in cmd/iabot-core).
func Load() Config {
	return Config{
		Port:               viper.GetInt("port"),
		OllamaHost:         viper.GetString("ollama_host"),
		ModelName:          viper.GetString("model_name"),
		APISecret:          viper.GetString("api_secret"),
		JWTSecret:          viper.GetString("jwt_secret_key"),
		TokenExpireMinutes: viper.GetInt("access_token_expire_minutes"),
		DBPath:             viper.GetString("db_path"),
		VoicesDir:          viper.GetString("voices_dir"),
		TTSURL:             viper.GetString("tts_url"),
		STTURL:             viper.GetString("stt_url"),
		LogLevel:           viper.GetString("log_level"),
		LogFormat:          viper.GetString("log_format"),
	}
}

// TokenTTL is the lifetime of an issued access token.
func (c Config) TokenTTL() time.Duration {
	if c.TokenExpireMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TokenExpireMinutes) * time.Minute
}

// Validate reports configuration that would make the server unusable.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret_key is required")
	}
	if c.OllamaHost == "" {
		return errors.New("ollama_host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}
	return nil
}
