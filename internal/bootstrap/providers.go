package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/forum-service/internal/adapters/config"
	apphttp "gitlab.com/timkado/api/forum-service/internal/adapters/http"
	"gitlab.com/timkado/api/forum-service/internal/adapters/logger"
	"gitlab.com/timkado/api/forum-service/internal/adapters/memory"
	"gitlab.com/timkado/api/forum-service/internal/adapters/middleware"
	appnats "gitlab.com/timkado/api/forum-service/internal/adapters/nats"
	appredis "gitlab.com/timkado/api/forum-service/internal/adapters/redis"
	"gitlab.com/timkado/api/forum-service/internal/adapters/sqlite"
	"gitlab.com/timkado/api/forum-service/internal/application"
	"gitlab.com/timkado/api/forum-service/internal/domain"
)

// ReadinessCheck reports whether one backing dependency can serve requests.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ReadinessChecks is the set of dependencies probed by GET /ready.
type ReadinessChecks []ReadinessCheck

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewExample()
		fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example logger: %v\n", err)
	}

	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App wires the HTTP server to the forum services.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServeMux   *http.ServeMux
	httpServer     *http.Server
	handlers       *apphttp.Handlers
	readiness      ReadinessChecks
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	handlers *apphttp.Handlers,
	readiness ReadinessChecks,
) *App {
	return &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServeMux:   mux,
		httpServer:     server,
		handlers:       handlers,
		readiness:      readiness,
	}
}

// ConfigProvider provides the application configuration.
// appCtx bounds the lifetime of the reload goroutines.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
// Every request passes through request-id tagging and panic recovery before routing.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux, appLogger domain.Logger) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second

	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      middleware.RequestIDMiddleware(middleware.RecoverMiddleware(appLogger)(mux)),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// RedisClientProvider provides a Redis client and a cleanup function. It
// returns a nil client when no component is configured to use Redis.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	if !appCfg.UsesRedis() {
		appLogger.Info(context.Background(), "Redis not required by configuration, skipping connection")
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// DocumentStoreProvider selects the document store named by store.driver.
func DocumentStoreProvider(cfgProvider config.Provider, redisClient *redis.Client, appLogger domain.Logger) (domain.DocumentStore, func(), error) {
	appCfg := cfgProvider.Get()
	switch appCfg.Store.Driver {
	case config.StoreDriverRedis:
		appLogger.Info(context.Background(), "Using Redis document store")
		return appredis.NewDocumentStoreAdapter(redisClient, appLogger), func() {}, nil
	case config.StoreDriverSQLite:
		store, err := sqlite.Open(appCfg.SQLite.Path, appLogger)
		if err != nil {
			appLogger.Error(context.Background(), "Failed to open SQLite document store", "path", appCfg.SQLite.Path, "error", err.Error())
			return nil, nil, err
		}
		appLogger.Info(context.Background(), "Using SQLite document store", "path", appCfg.SQLite.Path)
		cleanup := func() {
			if err := store.Close(); err != nil {
				appLogger.Error(context.Background(), "Failed to close SQLite document store", "error", err.Error())
			}
		}
		return store, cleanup, nil
	default:
		appLogger.Warn(context.Background(), "Using in-memory document store; data is lost on restart")
		return memory.NewDocumentStore(), func() {}, nil
	}
}

// CacheStoreProvider selects the backing store for the read-through cache.
func CacheStoreProvider(cfgProvider config.Provider, redisClient *redis.Client, appLogger domain.Logger) domain.CacheStore {
	if cfgProvider.Get().Cache.Backend == config.BackendRedis {
		return appredis.NewCacheAdapter(redisClient, appLogger)
	}
	return memory.NewCacheStore(time.Now)
}

// ItemLockerProvider selects the per-item lock used to serialize vote toggles.
// The local lock is only correct while a single instance serves the store.
func ItemLockerProvider(cfgProvider config.Provider, redisClient *redis.Client, appLogger domain.Logger) domain.ItemLocker {
	if cfgProvider.Get().Vote.LockBackend == config.BackendRedis {
		return appredis.NewItemLockAdapter(redisClient, cfgProvider, appLogger)
	}
	return application.NewKeyedMutex()
}

// EventPublisherProvider connects to NATS when nats.url is set. Without it
// content events are dropped.
func EventPublisherProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (domain.EventPublisher, func(), error) {
	if cfgProvider.Get().NATS.URL == "" {
		appLogger.Info(ctx, "NATS URL not configured, content events will not be published")
		return domain.NopEventPublisher{}, func() {}, nil
	}
	publisher, cleanup, err := appnats.NewEventPublisherAdapter(ctx, cfgProvider, appLogger)
	if err != nil {
		return nil, nil, err
	}
	return publisher, cleanup, nil
}

// IdentityResolverProvider provides the bearer token verifier.
func IdentityResolverProvider(cfgProvider config.Provider) domain.IdentityResolver {
	return middleware.NewJWTIdentityResolver(cfgProvider)
}

// ReadinessChecksProvider collects a probe for every configured backend that can report its health.
func ReadinessChecksProvider(redisClient *redis.Client, store domain.DocumentStore, events domain.EventPublisher) ReadinessChecks {
	var checks ReadinessChecks
	if redisClient != nil {
		checks = append(checks, ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	if pinger, ok := store.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, ReadinessCheck{Name: "store", Check: pinger.Ping})
	}
	if conn, ok := events.(interface{ IsConnected() bool }); ok {
		checks = append(checks, ReadinessCheck{Name: "nats", Check: func(context.Context) error {
			if !conn.IsConnected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		}})
	}
	return checks
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Infrastructure Adapters
	RedisClientProvider,
	DocumentStoreProvider,
	CacheStoreProvider,
	ItemLockerProvider,
	EventPublisherProvider,
	IdentityResolverProvider,
	ReadinessChecksProvider,

	// Application Services
	application.NewReadThroughCache,
	application.NewVoteEngine,
	application.NewPostService,
	application.NewCommentService,
	application.NewUserService,

	apphttp.NewHandlers,
	NewApp,
)
