// Package config loads and validates runtime configuration from flags,
// environment variables, .env files, and an optional YAML config file,
// in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/suprameds/shopsync/pkg/constants"
	"github.com/suprameds/shopsync/pkg/errors"
)

// Source holds the ERP connection settings.
type Source struct {
	URL      string `json:"url" yaml:"url"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	APIKey   string `json:"-" yaml:"-"`
}

// Destination holds the commerce admin API connection settings.
type Destination struct {
	URL   string `json:"url" yaml:"url"`
	Token string `json:"-" yaml:"-"`
}

// Config is the resolved runtime configuration for a sync run.
type Config struct {
	Source      Source      `json:"source" yaml:"source"`
	Destination Destination `json:"destination" yaml:"destination"`

	PageSize    int           `json:"page_size" yaml:"page_size"`
	Concurrency int           `json:"concurrency" yaml:"concurrency"`
	Currency    string        `json:"currency" yaml:"currency"`
	DryRun      bool          `json:"dry_run" yaml:"dry_run"`
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// Secret environment variables bound explicitly so they resolve even
// when no config file mentions them.
var secretEnvVars = []string{
	"ODOO_API_KEY",
	"MEDUSA_API_TOKEN",
}

// SetDefaults registers default values with Viper. Call once before Load.
func SetDefaults() {
	viper.SetDefault("source.database", "odoo")
	viper.SetDefault("page_size", constants.DefaultPageSize)
	viper.SetDefault("concurrency", constants.DefaultConcurrency)
	viper.SetDefault("currency", constants.DefaultCurrency)
	viper.SetDefault("dry_run", false)
	viper.SetDefault("max_retries", constants.MaxRetries)
	viper.SetDefault("timeout", constants.SyncTimeout)
}

// BindEnv wires environment variable lookups into Viper.
func BindEnv() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SHOPSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	for _, key := range secretEnvVars {
		_ = viper.BindEnv(key)
	}
}

// Load resolves the configuration from Viper's merged sources.
func Load() *Config {
	cfg := &Config{
		Source: Source{
			URL:      viper.GetString("source.url"),
			Database: viper.GetString("source.database"),
			Username: viper.GetString("source.username"),
			APIKey:   getSecret("source.api_key", "ODOO_API_KEY"),
		},
		Destination: Destination{
			URL:   viper.GetString("destination.url"),
			Token: getSecret("destination.token", "MEDUSA_API_TOKEN"),
		},
		PageSize:    viper.GetInt("page_size"),
		Concurrency: viper.GetInt("concurrency"),
		Currency:    viper.GetString("currency"),
		DryRun:      viper.GetBool("dry_run"),
		MaxRetries:  viper.GetInt("max_retries"),
		Timeout:     viper.GetDuration("timeout"),
	}
	return cfg
}

// getSecret resolves a secret from the config key first, then the
// conventional environment variable.
func getSecret(key, envVar string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	if v := viper.GetString(envVar); v != "" {
		return v
	}
	return os.Getenv(envVar)
}

// Validate checks that every setting a run needs is present and sane.
func (c *Config) Validate() error {
	switch {
	case c.Source.URL == "":
		return &errors.ConfigError{Field: "source.url", Message: "ERP endpoint URL is required"}
	case c.Source.Username == "":
		return &errors.ConfigError{Field: "source.username", Message: "ERP username is required"}
	case c.Source.APIKey == "":
		return &errors.ConfigError{Field: "source.api_key", Message: "ERP API key is required (set ODOO_API_KEY)"}
	case c.Destination.URL == "":
		return &errors.ConfigError{Field: "destination.url", Message: "commerce admin URL is required"}
	case c.Destination.Token == "":
		return &errors.ConfigError{Field: "destination.token", Message: "commerce API token is required (set MEDUSA_API_TOKEN)"}
	case c.PageSize <= 0:
		return &errors.ConfigError{Field: "page_size", Message: "must be positive"}
	case c.Concurrency < 1 || c.Concurrency > constants.MaxConcurrency:
		return &errors.ConfigError{Field: "concurrency", Message: "out of range"}
	case c.Currency == "":
		return &errors.ConfigError{Field: "currency", Message: "currency code is required"}
	case c.MaxRetries < 0:
		return &errors.ConfigError{Field: "max_retries", Message: "must be non-negative"}
	case c.Timeout < 0:
		return &errors.ConfigError{Field: "timeout", Message: "must be non-negative"}
	}
	return nil
}
