package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Redis is optional; when RedisAddr is empty the in-memory activity
	// cache is used instead.
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	// Token signing. Access and refresh tokens are signed with separate secrets.
	TokenIssuer        string `mapstructure:"TOKEN_ISSUER"`
	AccessTokenSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`

	// Reconciler scheduling.
	SweepIntervalHours int `mapstructure:"SWEEP_INTERVAL_HOURS"`
	SweepBootDelaySec  int `mapstructure:"SWEEP_BOOT_DELAY_SEC"`

	// Activity cache entry lifetime, minutes.
	ActivityCacheTTLMin int `mapstructure:"ACTIVITY_CACHE_TTL_MIN"`
}

// SweepInterval returns the reconciler interval as a duration.
func (c *ServerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalHours) * time.Hour
}

// SweepBootDelay returns the delay before the boot-time reconciler run.
func (c *ServerConfig) SweepBootDelay() time.Duration {
	return time.Duration(c.SweepBootDelaySec) * time.Second
}

// ActivityCacheTTL returns the activity cache entry lifetime as a duration.
func (c *ServerConfig) ActivityCacheTTL() time.Duration {
	return time.Duration(c.ActivityCacheTTLMin) * time.Minute
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/sessiond/")
	v.AddConfigPath("$HOME/.sessiond")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/sessiond_dev")
	v.SetDefault("MONGO_DB_NAME", "sessiond_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "sessiond")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PREFIX", "sessiond")
	v.SetDefault("TOKEN_ISSUER", "https://sessiond.pilab.hu")
	v.SetDefault("ACCESS_TOKEN_SECRET", "a_very_secret_access_key_change_me")   // CHANGE IN PRODUCTION
	v.SetDefault("REFRESH_TOKEN_SECRET", "a_very_secret_refresh_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("SWEEP_INTERVAL_HOURS", 24)
	v.SetDefault("SWEEP_BOOT_DELAY_SEC", 10)
	v.SetDefault("ACTIVITY_CACHE_TTL_MIN", 30)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable, we fall back to defaults and
		// environment variables. Anything else is a real error.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
