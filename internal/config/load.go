package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SCRY_SERVER_PORT.
const EnvPrefix = "SCRY"

var defaults = map[string]any{
	"server.port":                 8080,
	"server.log_level":            "info",
	"database.driver":             "sqlite",
	"database.url":                "scry.db",
	"database.max_open_conns":     10,
	"database.auto_migrate":       true,
	"auth.enabled":                false,
	"auth.jwt_secret":             "",
	"auth.token_lifetime_minutes": 60,
	"analytics.timezone":          "UTC",
	"queue.default_limit":         20,
	"queue.max_limit":             200,
}

// Keys without a default still need binding so AutomaticEnv picks them up
// during Unmarshal.
var boundOnly = []string{
	"scheduler.params_file",
	"scheduler.request_retention",
	"scheduler.maximum_interval",
	"scheduler.enable_fuzz",
}

// Load reads configuration from scry.yaml in the working directory, if
// present, and from SCRY_ environment variables, which take precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// working directory for scry.yaml; a missing file there is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundOnly {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scry")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
