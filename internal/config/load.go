package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a
// config file named sonix.yaml in the working directory. Environment
// variables take precedence over file values. Returns a populated
// Config struct or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep the daemon runnable with no configuration at all.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("engine.max_concurrent", 2)
	v.SetDefault("engine.pool_size", 4)
	v.SetDefault("engine.idle_timeout", "60s")
	v.SetDefault("engine.health_check_timeout", "10s")
	v.SetDefault("engine.cancel_grace", "5s")
	v.SetDefault("engine.shutdown_grace", "10s")
	v.SetDefault("engine.tick_interval", "15s")
	v.SetDefault("engine.max_queue_depth", 100)
	v.SetDefault("engine.enable_progress_reporting", true)
	v.SetDefault("engine.progress_buffer_size", 16)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "0s")

	v.SetConfigName("sonix")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SONIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
