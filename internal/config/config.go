package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-srs/internal/domain/srs"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Queue     QueueConfig     `mapstructure:"queue"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	// AutoMigrate applies pending migrations when the application starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// AuthConfig contains bearer-token settings for the HTTP API.
type AuthConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	JWTSecret            string `mapstructure:"jwt_secret"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=1"`
}

// TokenLifetime returns the configured lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// SchedulerConfig overrides the scheduling model's parameter set. Zero values
// keep the parameter file's value, or the model default when no file is set.
type SchedulerConfig struct {
	ParamsFile       string  `mapstructure:"params_file"`
	RequestRetention float64 `mapstructure:"request_retention" validate:"omitempty,gt=0,lt=1"`
	MaximumInterval  int     `mapstructure:"maximum_interval" validate:"omitempty,gte=1"`
	EnableFuzz       *bool   `mapstructure:"enable_fuzz"`
}

// Params resolves the scheduler parameter set: defaults, then the parameter
// file, then the explicit overrides.
func (c SchedulerConfig) Params() (*srs.Params, error) {
	params := srs.NewDefaultParams()
	if c.ParamsFile != "" {
		loaded, err := srs.LoadParamsFile(c.ParamsFile)
		if err != nil {
			return nil, err
		}
		params = loaded
	}
	if c.RequestRetention != 0 {
		params.RequestRetention = c.RequestRetention
	}
	if c.MaximumInterval != 0 {
		params.MaximumInterval = c.MaximumInterval
	}
	if c.EnableFuzz != nil {
		params.EnableFuzz = *c.EnableFuzz
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// AnalyticsConfig controls how review timestamps are bucketed into days.
type AnalyticsConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// Location loads the configured IANA timezone.
func (c AnalyticsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// QueueConfig bounds the due-queue page size.
type QueueConfig struct {
	DefaultLimit int `mapstructure:"default_limit" validate:"gte=1"`
	MaxLimit     int `mapstructure:"max_limit" validate:"gtefield=DefaultLimit"`
}

// Validate checks the cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.Enabled && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters when auth is enabled"))
	}
	if _, err := c.Analytics.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Scheduler.Params(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
