package config

import "time"

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Collectors CollectorsConfig `mapstructure:"collectors"`
	API        APIConfig        `mapstructure:"api"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	Timezone        string        `mapstructure:"timezone"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	WindowBehind time.Duration `mapstructure:"window_behind"`
	WindowAhead  time.Duration `mapstructure:"window_ahead"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
}

type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	BackoffBase  float64       `mapstructure:"backoff_base"`
	Jitter       bool          `mapstructure:"jitter"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// CollectorDefaults applies to every collector unless its own section
// overrides a value.
type CollectorDefaults struct {
	Timeout        time.Duration        `mapstructure:"timeout"`
	HistorySize    int                  `mapstructure:"history_size"`
	Retry          RetryConfig          `mapstructure:"retry"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CollectorsConfig struct {
	Defaults     CollectorDefaults  `mapstructure:"defaults"`
	EnergyZero   EnergyZeroConfig   `mapstructure:"energyzero"`
	OpenMeteo    OpenMeteoConfig    `mapstructure:"openmeteo"`
	Luchtmeetnet LuchtmeetnetConfig `mapstructure:"luchtmeetnet"`
}

type EnergyZeroConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	IncludeVAT bool   `mapstructure:"include_vat"`
}

type OpenMeteoConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	BaseURL   string  `mapstructure:"base_url"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

type LuchtmeetnetConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseURL         string        `mapstructure:"base_url"`
	Latitude        float64       `mapstructure:"latitude"`
	Longitude       float64       `mapstructure:"longitude"`
	Formula         string        `mapstructure:"formula"`
	StationCacheTTL time.Duration `mapstructure:"station_cache_ttl"`
}

type APIConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTDuration       time.Duration `mapstructure:"jwt_duration"`
	JWTIssuer         string        `mapstructure:"jwt_issuer"`
	AdminUsername     string        `mapstructure:"admin_username"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	DefaultLimit      int           `mapstructure:"default_limit"`
	MaxLimit          int           `mapstructure:"max_limit"`
	CORS              CORSConfig    `mapstructure:"cors"`
	WebSocket         WSConfig      `mapstructure:"websocket"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WSConfig struct {
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
