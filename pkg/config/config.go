package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Signal struct {
		PingInterval      time.Duration `yaml:"ping_interval"`
		PongTimeout       time.Duration `yaml:"pong_timeout"`
		WriteTimeout      time.Duration `yaml:"write_timeout"`
		ReadLimitBytes    int64         `yaml:"read_limit_bytes"`
		SendBufferSize    int           `yaml:"send_buffer_size"`
		MessagesPerSecond float64       `yaml:"messages_per_second"`
		MessageBurst      int           `yaml:"message_burst"`
	} `yaml:"signal"`

	Hub struct {
		SweepInterval     time.Duration `yaml:"sweep_interval"`
		RetentionWindow   time.Duration `yaml:"retention_window"`
		PurgeInterval     time.Duration `yaml:"purge_interval"`
		MaxBufferCapacity int           `yaml:"max_buffer_capacity"`
		DefaultSampleRate int           `yaml:"default_sample_rate"`
		DefaultChannels   int           `yaml:"default_channels"`
		DefaultBufferCap  int           `yaml:"default_buffer_capacity"`
	} `yaml:"hub"`

	Auth struct {
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	} `yaml:"auth"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Signal.PingInterval <= 0 {
		return fmt.Errorf("signal.ping_interval must be > 0")
	}
	if c.Signal.PongTimeout <= c.Signal.PingInterval {
		return fmt.Errorf("signal.pong_timeout must be > signal.ping_interval")
	}
	if c.Signal.WriteTimeout <= 0 {
		return fmt.Errorf("signal.write_timeout must be > 0")
	}
	if c.Signal.ReadLimitBytes <= 0 {
		return fmt.Errorf("signal.read_limit_bytes must be > 0")
	}
	if c.Signal.SendBufferSize <= 0 {
		return fmt.Errorf("signal.send_buffer_size must be > 0")
	}
	if c.Signal.MessagesPerSecond <= 0 {
		return fmt.Errorf("signal.messages_per_second must be > 0")
	}
	if c.Signal.MessageBurst <= 0 {
		return fmt.Errorf("signal.message_burst must be > 0")
	}

	if c.Hub.SweepInterval <= 0 {
		return fmt.Errorf("hub.sweep_interval must be > 0")
	}
	if c.Hub.RetentionWindow <= 0 {
		return fmt.Errorf("hub.retention_window must be > 0")
	}
	if c.Hub.PurgeInterval <= 0 {
		return fmt.Errorf("hub.purge_interval must be > 0")
	}
	if c.Hub.MaxBufferCapacity <= 0 {
		return fmt.Errorf("hub.max_buffer_capacity must be > 0")
	}
	if c.Hub.DefaultBufferCap <= 0 || c.Hub.DefaultBufferCap > c.Hub.MaxBufferCapacity {
		return fmt.Errorf("hub.default_buffer_capacity must be in (0, max_buffer_capacity]")
	}
	if c.Hub.DefaultSampleRate <= 0 {
		return fmt.Errorf("hub.default_sample_rate must be > 0")
	}
	if c.Hub.DefaultChannels <= 0 {
		return fmt.Errorf("hub.default_channels must be > 0")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing is enabled")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1]")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults. Stream defaults
// match an 8-channel OpenBCI Cyton board sampling at 250 Hz.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Signal.PingInterval = 30 * time.Second
	cfg.Signal.PongTimeout = 60 * time.Second
	cfg.Signal.WriteTimeout = 10 * time.Second
	cfg.Signal.ReadLimitBytes = 64 * 1024
	cfg.Signal.SendBufferSize = 256
	cfg.Signal.MessagesPerSecond = 500
	cfg.Signal.MessageBurst = 1000

	cfg.Hub.SweepInterval = time.Minute
	cfg.Hub.RetentionWindow = 15 * time.Minute
	cfg.Hub.PurgeInterval = 30 * time.Second
	cfg.Hub.MaxBufferCapacity = 30000
	cfg.Hub.DefaultSampleRate = 250
	cfg.Hub.DefaultChannels = 8
	cfg.Hub.DefaultBufferCap = 2500

	cfg.Auth.JWTSecret = "change-me-in-production"
	cfg.Auth.AccessTokenTTL = 15 * time.Minute

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "neurohub"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("NEUROHUB_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("NEUROHUB_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("NEUROHUB_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}
