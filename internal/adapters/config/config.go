package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "FORUM"

// Store drivers.
const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
	StoreDriverSQLite = "sqlite"
)

// Lock and cache backends.
const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

// ServerConfig holds server-related configurations.
// Note: Fields should be exported (start with uppercase) to be unmarshalled by Viper.
type ServerConfig struct {
	HTTPPort int    `mapstructure:"http_port"`
	PodID    string `mapstructure:"pod_id"` // Used as the NATS client name suffix
}

// NATSConfig holds NATS-related configurations. An empty URL disables event publishing.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"` // Optional
	DB       int    `mapstructure:"db"`       // Optional
}

// SQLiteConfig holds the SQLite document store settings.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig selects the document store implementation.
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // memory | redis | sqlite
}

// LogConfig holds logging-related configurations.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// AuthConfig holds bearer-token verification settings. Tokens are issued elsewhere.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"` // Should primarily come from ENV
	JWTIssuer string `mapstructure:"jwt_issuer"` // Optional; checked when set
}

// CacheConfig holds read-through cache settings.
type CacheConfig struct {
	Backend           string `mapstructure:"backend"` // local | redis
	UsersTTLSeconds   int    `mapstructure:"users_ttl_seconds"`
	InvalidateOnWrite bool   `mapstructure:"invalidate_on_write"` // false keeps the bounded-staleness behaviour
}

// VoteConfig holds the per-item lock settings used by the vote engine.
type VoteConfig struct {
	LockBackend         string `mapstructure:"lock_backend"` // local | redis
	LockTTLSeconds      int    `mapstructure:"lock_ttl_seconds"`
	LockMaxRetries      int    `mapstructure:"lock_max_retries"`
	LockRetryDelayMs    int    `mapstructure:"lock_retry_delay_ms"`
	LockMaxRetryDelayMs int    `mapstructure:"lock_max_retry_delay_ms"`
}

// AppConfig holds application-specific configurations.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
}

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	NATS   NATSConfig   `mapstructure:"nats"`
	Redis  RedisConfig  `mapstructure:"redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Store  StoreConfig  `mapstructure:"store"`
	Log    LogConfig    `mapstructure:"log"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Vote   VoteConfig   `mapstructure:"vote"`
	App    AppConfig    `mapstructure:"app"`
}

// Provider defines an interface for accessing application configuration.
// This allows for easy mocking in tests and decouples the app from Viper.
type Provider interface {
	Get() *Config
}

// StaticProvider serves a fixed Config. Used by tests and tools.
type StaticProvider struct {
	Config *Config
}

// Get implements Provider.
func (p StaticProvider) Get() *Config {
	return p.Config
}

// viperProvider implements the Provider interface using Viper.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // Using zap.Logger directly for config internal logging, not domain.Logger to avoid circular deps
}

// setDefaults registers the values used when neither file nor ENV provide one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("sqlite.path", "forum.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("nats.subject_prefix", "forum")
	v.SetDefault("cache.backend", BackendLocal)
	v.SetDefault("cache.users_ttl_seconds", 3600)
	v.SetDefault("cache.invalidate_on_write", false)
	v.SetDefault("vote.lock_backend", BackendLocal)
	v.SetDefault("vote.lock_ttl_seconds", 5)
	v.SetDefault("vote.lock_max_retries", 20)
	v.SetDefault("vote.lock_retry_delay_ms", 10)
	v.SetDefault("vote.lock_max_retry_delay_ms", 200)
	v.SetDefault("app.service_name", "forum-service")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.shutdown_timeout_seconds", 30)
	v.SetDefault("app.write_timeout_seconds", 10)
}

// NewViperProvider creates and initializes a new configuration provider using Viper.
// It loads configuration from file and environment variables, and sets up hot-reloading.
// appCtx is the application lifecycle context used for graceful shutdown of background tasks.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := viper.New()
	setDefaults(v)

	// Configure Viper to read from YAML file
	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".") // Also look in current directory for local dev

	// Configure Viper to read from environment variables
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")) // e.g., cache.users_ttl_seconds becomes FORUM_CACHE_USERS_TTL_SECONDS

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, err
	}

	p := &viperProvider{logger: logger}
	p.config.Store(cfg)

	// Set up SIGHUP for hot-reloading configuration
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, attempting to reload configuration...", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "sighup")
			case <-appCtx.Done():
				p.logger.Info("SIGHUPConfigReloader goroutine shutting down due to context cancellation.")
				return
			}
		}
	}()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Panic recovered in OnConfigChange callback",
						zap.String("event_name", e.Name),
						zap.Any("panic_info", r),
						zap.String("stacktrace", string(debug.Stack())),
					)
				}
			}()
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
			p.reload(v, "file_change")
		})
		v.WatchConfig()
	}

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))
	return p, nil
}

func (p *viperProvider) reload(v *viper.Viper, source string) {
	newCfg, err := decode(v)
	if err != nil {
		p.logger.Error("Failed to unmarshal reloaded config", zap.String("source", source), zap.Error(err))
		return
	}
	p.config.Store(newCfg)
	p.logger.Info("Configuration reloaded successfully", zap.String("source", source))
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the bootstrap cannot wire.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverRedis, StoreDriverSQLite:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	for name, backend := range map[string]string{"cache.backend": c.Cache.Backend, "vote.lock_backend": c.Vote.LockBackend} {
		if backend != BackendLocal && backend != BackendRedis {
			return fmt.Errorf("unknown %s %q", name, backend)
		}
	}
	if c.Cache.UsersTTLSeconds < 0 {
		return fmt.Errorf("cache.users_ttl_seconds must not be negative")
	}
	return nil
}

// UsesRedis reports whether any component is configured to need a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Store.Driver == StoreDriverRedis || c.Cache.Backend == BackendRedis || c.Vote.LockBackend == BackendRedis
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
