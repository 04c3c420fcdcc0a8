package config

import "time"

// Config holds all daemon configuration, grouped by concern.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	Engine EngineConfig `mapstructure:"engine" validate:"required"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// EngineConfig contains the scheduler and worker pool settings.
type EngineConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"required,gte=1"`
	PoolSize      int `mapstructure:"pool_size"      validate:"required,gte=1,gtefield=MaxConcurrent"`

	IdleTimeout        time.Duration `mapstructure:"idle_timeout"         validate:"gt=0"`
	HealthCheckTimeout time.Duration `mapstructure:"health_check_timeout" validate:"gt=0"`
	CancelGrace        time.Duration `mapstructure:"cancel_grace"         validate:"gt=0"`
	ShutdownGrace      time.Duration `mapstructure:"shutdown_grace"       validate:"gt=0"`
	TickInterval       time.Duration `mapstructure:"tick_interval"        validate:"gte=0"`

	MaxQueueDepth           int  `mapstructure:"max_queue_depth" validate:"gte=0"`
	EnableProgressReporting bool `mapstructure:"enable_progress_reporting"`
	ProgressBufferSize      int  `mapstructure:"progress_buffer_size" validate:"gte=1"`
}

// CacheConfig selects the optional result cache backend.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"   validate:"omitempty,oneof=none memory redis"`
	RedisURL string        `mapstructure:"redis_url" validate:"required_if=Backend redis,omitempty,uri"`
	TTL      time.Duration `mapstructure:"ttl"       validate:"gte=0"`
}
