package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	KV   KVConfig   `mapstructure:"kv" yaml:"kv"`
	Chat ChatConfig `mapstructure:"chat" yaml:"chat"`
	WS   WSConfig   `mapstructure:"ws" yaml:"ws"`
}

// KV backends.
const (
	KVBackendSQLite = "sqlite"
	KVBackendRedis  = "redis"
)

// KVConfig selects where room attributes, orderings and presence live.
type KVConfig struct {
	Backend       string `mapstructure:"backend" yaml:"backend"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// ChatConfig holds chat limits and rate-limit tiers.
type ChatConfig struct {
	NewbieReputationThreshold int           `mapstructure:"newbie_reputation_threshold" yaml:"newbie_reputation_threshold"`
	MessageDelay              time.Duration `mapstructure:"message_delay" yaml:"message_delay"`
	NewbieMessageDelay        time.Duration `mapstructure:"newbie_message_delay" yaml:"newbie_message_delay"`
	MaximumMessageLength      int           `mapstructure:"maximum_message_length" yaml:"maximum_message_length"`
	SessionTTL                time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	MaxSessions               int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	PublicRoomsCacheTTL       time.Duration `mapstructure:"public_rooms_cache_ttl" yaml:"public_rooms_cache_ttl"`
}

// WSConfig limits websocket clients.
type WSConfig struct {
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimit       int   `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "wirechat.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "wirechat",
		JWTAudience:       "wirechat-clients",
		JWTTTL:            24 * time.Hour,
		KV: KVConfig{
			Backend:     KVBackendSQLite,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "wirechat:",
		},
		Chat: ChatConfig{
			NewbieReputationThreshold: 3,
			MessageDelay:              2 * time.Second,
			NewbieMessageDelay:        2 * time.Minute,
			MaximumMessageLength:      1000,
			SessionTTL:                24 * time.Hour,
			MaxSessions:               100_000,
			PublicRoomsCacheTTL:       time.Minute,
		},
		WS: WSConfig{
			MaxMessageBytes: 64 << 10,
			RateLimit:       120,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Only the values exposed as CLI flags are considered.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.KV.Backend != "" {
		c.KV.Backend = other.KV.Backend
	}
}
