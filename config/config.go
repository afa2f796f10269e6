package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// SQLite database holding source tables and the catalog read model
	DatabasePath string `env:"CATALOG_DB_PATH" envDefault:"database/catalog.db"`

	// HTTP port for the query surface
	Port string `env:"PORT" envDefault:"5250"`

	// One of logrus' level names
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Locales the projection accepts
	Locales []string `env:"CATALOG_LOCALES" envSeparator:"," envDefault:"en,es"`

	Media struct {
		// Public base URL of the blob bucket
		BaseURL string `env:"MEDIA_BASE_URL" envDefault:"https://media.example.com"`
	}

	Refresh struct {
		// blocking or nonblocking
		DefaultMode string `env:"REFRESH_DEFAULT_MODE" envDefault:"nonblocking"`

		// Longest a single rebuild may run before it is abandoned
		Timeout time.Duration `env:"REFRESH_TIMEOUT" envDefault:"30s"`

		// Maximum number of tenants waiting for a non-blocking rebuild
		QueueSize int `env:"REFRESH_QUEUE_SIZE" envDefault:"256"`

		// Number of concurrent rebuild workers
		Workers int `env:"REFRESH_WORKERS" envDefault:"2"`

		// Maximum number of retries for a failed rebuild
		MaxRetries int `env:"REFRESH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"REFRESH_RETRY_DELAY" envDefault:"5"`

		// Cron spec of the catch-up sweep for tenants whose refresh failed
		CatchUpSpec string `env:"REFRESH_CATCHUP_SPEC" envDefault:"@every 1m"`
	}
}

// LoadConfig reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RetryDelayDuration converts RetryDelay to a duration.
func (c *Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.Refresh.RetryDelay) * time.Second
}
