package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "WIRECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("WIRECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, configPath, err
	}

	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("jwt_secret", cfg.JWTSecret)
	v.SetDefault("jwt_issuer", cfg.JWTIssuer)
	v.SetDefault("jwt_audience", cfg.JWTAudience)
	v.SetDefault("jwt_ttl", cfg.JWTTTL)

	v.SetDefault("kv.backend", cfg.KV.Backend)
	v.SetDefault("kv.redis_addr", cfg.KV.RedisAddr)
	v.SetDefault("kv.redis_password", cfg.KV.RedisPassword)
	v.SetDefault("kv.redis_db", cfg.KV.RedisDB)
	v.SetDefault("kv.redis_prefix", cfg.KV.RedisPrefix)

	v.SetDefault("chat.newbie_reputation_threshold", cfg.Chat.NewbieReputationThreshold)
	v.SetDefault("chat.message_delay", cfg.Chat.MessageDelay)
	v.SetDefault("chat.newbie_message_delay", cfg.Chat.NewbieMessageDelay)
	v.SetDefault("chat.maximum_message_length", cfg.Chat.MaximumMessageLength)
	v.SetDefault("chat.session_ttl", cfg.Chat.SessionTTL)
	v.SetDefault("chat.max_sessions", cfg.Chat.MaxSessions)
	v.SetDefault("chat.public_rooms_cache_ttl", cfg.Chat.PublicRoomsCacheTTL)

	v.SetDefault("ws.max_message_bytes", cfg.WS.MaxMessageBytes)
	v.SetDefault("ws.rate_limit", cfg.WS.RateLimit)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.KV.Backend {
	case KVBackendSQLite:
	case KVBackendRedis:
		if c.KV.RedisAddr == "" {
			return errors.New("kv.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown kv.backend %q", c.KV.Backend)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.Chat.MaximumMessageLength <= 0 {
		return errors.New("chat.maximum_message_length must be positive")
	}
	if c.Chat.MaxSessions <= 0 {
		return errors.New("chat.max_sessions must be positive")
	}
	return nil
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
