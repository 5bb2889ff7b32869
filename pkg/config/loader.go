package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/energyhub")
	}

	// Environment variable settings
	v.SetEnvPrefix("ENERGYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "energyhub")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.timezone", "Europe/Amsterdam")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "energyhub")
	v.SetDefault("database.user", "energyhub")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.ssl_mode", "disable")

	// Scheduler defaults
	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.window_behind", "0s")
	v.SetDefault("scheduler.window_ahead", "24h")
	v.SetDefault("scheduler.run_timeout", "10m")

	// Collector defaults
	v.SetDefault("collectors.defaults.timeout", "10s")
	v.SetDefault("collectors.defaults.history_size", 100)
	v.SetDefault("collectors.defaults.retry.max_attempts", 3)
	v.SetDefault("collectors.defaults.retry.initial_delay", "1s")
	v.SetDefault("collectors.defaults.retry.max_delay", "60s")
	v.SetDefault("collectors.defaults.retry.backoff_base", 2.0)
	v.SetDefault("collectors.defaults.retry.jitter", true)
	v.SetDefault("collectors.defaults.circuit_breaker.enabled", true)
	v.SetDefault("collectors.defaults.circuit_breaker.failure_threshold", 5)
	v.SetDefault("collectors.defaults.circuit_breaker.success_threshold", 2)
	v.SetDefault("collectors.defaults.circuit_breaker.timeout", "60s")

	v.SetDefault("collectors.energyzero.enabled", true)
	v.SetDefault("collectors.energyzero.include_vat", true)

	v.SetDefault("collectors.openmeteo.enabled", true)
	v.SetDefault("collectors.openmeteo.latitude", 52.37)
	v.SetDefault("collectors.openmeteo.longitude", 4.89)

	v.SetDefault("collectors.luchtmeetnet.enabled", false)
	v.SetDefault("collectors.luchtmeetnet.latitude", 52.37)
	v.SetDefault("collectors.luchtmeetnet.longitude", 4.89)
	v.SetDefault("collectors.luchtmeetnet.formula", "NO2")
	v.SetDefault("collectors.luchtmeetnet.station_cache_ttl", "24h")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.jwt_issuer", "energyhub")
	v.SetDefault("api.admin_username", "admin")
	v.SetDefault("api.default_limit", 20)
	v.SetDefault("api.max_limit", 100)
	v.SetDefault("api.websocket.ping_interval", "30s")
	v.SetDefault("api.websocket.broadcast_buffer", 256)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
