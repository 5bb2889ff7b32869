package config

import (
	"errors"
	"fmt"
	"time"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.App.Timezone == "" {
		errs = append(errs, errors.New("app.timezone is required"))
	} else if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("app.timezone is not a valid IANA zone: %v", err))
	}

	// Database validation (only when enabled)
	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Scheduler validation
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if c.Scheduler.WindowAhead <= 0 && c.Scheduler.WindowBehind <= 0 {
		errs = append(errs, errors.New("scheduler window must span a positive range"))
	}
	if c.Scheduler.RunTimeout <= 0 {
		errs = append(errs, errors.New("scheduler.run_timeout must be positive"))
	}

	// Collector validation
	if c.Collectors.Defaults.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("collectors.defaults.retry.max_attempts must be at least 1"))
	}
	if c.Collectors.Defaults.Retry.InitialDelay < 0 {
		errs = append(errs, errors.New("collectors.defaults.retry.initial_delay must not be negative"))
	}
	if c.Collectors.Defaults.Retry.BackoffBase <= 0 {
		errs = append(errs, errors.New("collectors.defaults.retry.backoff_base must be positive"))
	}
	if c.Collectors.Defaults.CircuitBreaker.FailureThreshold <= 0 {
		errs = append(errs, errors.New("collectors.defaults.circuit_breaker.failure_threshold must be positive"))
	}
	if c.Collectors.Defaults.CircuitBreaker.SuccessThreshold <= 0 {
		errs = append(errs, errors.New("collectors.defaults.circuit_breaker.success_threshold must be positive"))
	}
	if c.Collectors.Defaults.CircuitBreaker.Timeout <= 0 {
		errs = append(errs, errors.New("collectors.defaults.circuit_breaker.timeout must be positive"))
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port <= 0 || c.API.Port > 65535 {
			errs = append(errs, errors.New("api.port must be between 1 and 65535"))
		}
		if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
			errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
