package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/wishlist/internal/api"
	"github.com/mcoot/wishlist/internal/config"
	"github.com/mcoot/wishlist/internal/dependencies/clock"
	"github.com/mcoot/wishlist/internal/dependencies/random"
	"github.com/mcoot/wishlist/internal/registry"
	"github.com/mcoot/wishlist/internal/server"
	"github.com/mcoot/wishlist/internal/services/auth"
	"github.com/mcoot/wishlist/internal/services/wishlist"
	"github.com/mcoot/wishlist/internal/storage"
	"github.com/mcoot/wishlist/internal/storage/memory"
	redisstorage "github.com/mcoot/wishlist/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService     *auth.Service
	WishlistService *wishlist.Service
	Registry        *registry.Registry

	// Transports. Admin is nil when the admin surface is disabled.
	Server *server.Server
	Admin  *api.Server

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Server configures the TCP listener
	Server server.Config
	// Admin configures the admin HTTP listener (optional)
	// If nil, no admin server is created
	Admin *api.Config
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// FromConfig maps loaded configuration onto factory Config
func FromConfig(c config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Server: server.Config{
			Host:       c.Server.Host,
			Port:       c.Server.Port,
			BufferSize: c.Server.BufferSize,
		},
		AuthConfig:  auth.Config{BcryptCost: c.Auth.BcryptCost},
		Logger:      logger,
		StorageType: c.Storage.Type,
	}
	if c.Admin.Port != 0 {
		admin := api.DefaultConfig()
		admin.Host = c.Admin.Host
		admin.Port = c.Admin.Port
		cfg.Admin = &admin
	}
	if c.Storage.Type == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.Storage.RedisURL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// New creates a new application with all dependencies wired. The storage
// backend is cleared so every start begins with no accounts or wish lists.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	if err := store.Clear(ctx); err != nil {
		closeStorage(store)
		return nil, fmt.Errorf("clear storage: %w", err)
	}

	authCfg := cfg.AuthConfig
	if authCfg.BcryptCost == 0 {
		authCfg = auth.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), authCfg, cfg, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, authCfg auth.Config, cfg Config, logger *slog.Logger) *App {
	authService := auth.New(store, clk, authCfg, logger)
	wishlistService := wishlist.New(store, authService, rnd, logger)
	reg := registry.New(store, authService, wishlistService, logger)
	srv := server.New(cfg.Server, reg, logger)

	app := &App{
		Storage:         store,
		Clock:           clk,
		Random:          rnd,
		AuthService:     authService,
		WishlistService: wishlistService,
		Registry:        reg,
		Server:          srv,
		logger:          logger,
	}

	if cfg.Admin != nil {
		router := api.NewRouter(api.RouterConfig{
			Logger: logger.With(slog.String("component", "admin")),
			Stats:  srv,
		})
		app.Admin = api.NewServer(router, *cfg.Admin, logger)
	}

	return app
}

// Listen binds every listener so addresses are known before Run
func (a *App) Listen() error {
	if err := a.Server.Listen(); err != nil {
		return err
	}
	if a.Admin != nil {
		if err := a.Admin.Listen(); err != nil {
			return err
		}
	}
	return nil
}

// Run serves the TCP protocol and, when enabled, the admin API until ctx
// is cancelled or either server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.Server.Serve(gctx)
	})

	if a.Admin != nil {
		g.Go(a.Admin.Start)
		g.Go(func() error {
			<-gctx.Done()
			return a.Admin.Shutdown(context.Background())
		})
	}

	return g.Wait()
}

// Close releases storage resources
func (a *App) Close() error {
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func closeStorage(store storage.Storage) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}
