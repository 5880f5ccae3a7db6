package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables (prefixed STUDIO_, nested keys joined with
// underscores, e.g. STUDIO_SERVER_PORT) take precedence over file values.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep local development zero-config apart from the secrets.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue_key", "dispatch:jobs")
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("executor.worker_count", 4)
	v.SetDefault("executor.max_attempts", 3)
	v.SetDefault("executor.retry_delay_seconds", 60)
	v.SetDefault("executor.checkpoint_delay_ms", 400)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/studio-api")

	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind the keys with no default so Unmarshal sees them even
	// when only the environment provides a value.
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"database.url", "STUDIO_DATABASE_URL"},
		{"auth.jwt_secret", "STUDIO_AUTH_JWT_SECRET"},
		{"redis.password", "STUDIO_REDIS_PASSWORD"},
	}
	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env.envVar, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; anything else is a real failure.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
