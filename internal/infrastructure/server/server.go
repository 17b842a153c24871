package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/64andrewwalker/macos98-sub001/internal/api/http"
	"github.com/64andrewwalker/macos98-sub001/internal/api/middleware"
	"github.com/64andrewwalker/macos98-sub001/internal/api/ws"
	"github.com/64andrewwalker/macos98-sub001/internal/apps/script"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/app"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/registry"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/service"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/config"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/store"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/tracing"
	"github.com/64andrewwalker/macos98-sub001/internal/providers/clipboard"
	"github.com/64andrewwalker/macos98-sub001/internal/providers/storage"
	"github.com/64andrewwalker/macos98-sub001/internal/providers/sysinfo"
)

// Version is the kernel version reported by the API.
const Version = "0.3.0"

// shutdownTimeout bounds how long Close waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Server wires the kernel together and serves its API.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	db       store.DB
	fs       *vfs.VFS
	bus      *events.Bus
	tasks    *task.Manager
	windows  *window.Manager
	registry *registry.Registry
	runtime  *app.Runtime
	services *service.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Options tunes server construction beyond what configuration
// carries. The zero value is right for production.
type Options struct {
	// Metrics supplies a shared collector. Prometheus collectors
	// register process-wide, so anything constructing more than one
	// server in a process must pass the same instance every time.
	// Nil creates a fresh one.
	Metrics *monitoring.Metrics
	// Logger overrides the logger built from configuration.
	Logger *logging.Logger
}

// New builds the kernel from configuration: store, file system,
// managers, app runtime, service providers, and the HTTP surface.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = newLogger(cfg.Logging)
	}

	logger.Info("initializing kernel",
		zap.String("version", Version),
		zap.String("port", cfg.Server.Port),
		zap.String("store", storeLabel(cfg.Store)),
	)

	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	tracer := tracing.New("kernel", logger.Logger)

	db, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	fs, err := vfs.New(ctx, vfs.Config{DB: db, Logger: logger, Metrics: metrics})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to mount file system: %w", err)
	}
	if err := fs.Seed(ctx); err != nil {
		fs.Close()
		db.Close()
		return nil, fmt.Errorf("failed to seed file system: %w", err)
	}

	bus := events.New().WithMetrics(metrics)
	tasks := task.NewManager().WithMetrics(metrics)
	windows := window.NewManager().WithMetrics(metrics)
	reg := registry.New(bus, logger).WithMetrics(metrics)

	engine := script.NewEngine(fs, script.Config{}, logger)
	installer := registry.NewInstaller(reg, fs, engine.Factory, logger)

	services := service.NewRegistry()
	providers := []service.Provider{
		storage.NewProvider(fs, logger),
		clipboard.NewProvider(bus),
		sysinfo.NewProvider(sysinfo.Config{
			Version: Version,
			Tasks:   tasks,
			Windows: windows,
			FS:      fs,
			Bus:     bus,
		}),
	}
	for _, p := range providers {
		if err := services.Register(p); err != nil {
			logger.Warn("failed to register service provider", zap.Error(err))
		}
	}

	runtime := app.New(app.Config{
		Registry: reg,
		Tasks:    tasks,
		Windows:  windows,
		Bus:      bus,
		FS:       fs,
		Services: services,
		Logger:   logger,
		Metrics:  metrics,
	})

	if cfg.Desktop.SeedDir != "" {
		seeder := registry.NewSeeder(installer, logger)
		count, err := seeder.SeedFrom(ctx, cfg.Desktop.SeedDir)
		if err != nil {
			logger.Warn("failed to seed bundled apps",
				zap.String("dir", cfg.Desktop.SeedDir),
				zap.Error(err),
			)
		} else {
			logger.Info("seeded bundled apps", zap.Int("count", count))
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}

	handlers := httpapi.NewHandlers(httpapi.Config{
		FS:        fs,
		Bus:       bus,
		Tasks:     tasks,
		Windows:   windows,
		Registry:  reg,
		Installer: installer,
		Runtime:   runtime,
		Services:  services,
		Metrics:   metrics,
		Logger:    logger,
		Version:   Version,
	})
	stream := ws.NewHandler(ws.Config{
		Bus:     bus,
		Windows: windows,
		FS:      fs,
		Metrics: metrics,
		Logger:  logger,
	})

	httpapi.Register(router, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)
	router.GET("/stream", stream.HandleConnection)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)

	logger.Info("kernel initialized")

	return &Server{
		router:   router,
		http:     &http.Server{Addr: addr, Handler: router},
		db:       db,
		fs:       fs,
		bus:      bus,
		tasks:    tasks,
		windows:  windows,
		registry: reg,
		runtime:  runtime,
		services: services,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Router exposes the HTTP surface for in-process callers and tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves the API until the listener stops. Returns nil after a
// graceful Close.
func (s *Server) Run() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts the kernel down: drains in-flight requests, terminates
// running apps, flushes the file system, and releases the store.
func (s *Server) Close() error {
	s.logger.Info("shutting down kernel")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	s.runtime.Shutdown()
	s.fs.Close()
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close store", zap.Error(err))
		s.logger.Sync()
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.logger.Info("kernel stopped")
	s.logger.Sync()
	return nil
}

func newLogger(cfg config.LogConfig) *logging.Logger {
	if cfg.Development {
		return logging.NewDevelopment()
	}
	logger, err := logging.New(logging.Config{
		Level:       cfg.Level,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return logging.NewDefault()
	}
	return logger
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.DB, error) {
	if cfg.InMemory {
		return store.OpenMemory(cfg.Name, vfs.SchemaVersion, vfs.Schema)
	}
	return store.OpenSQLite(ctx, store.Options{
		Path:    cfg.Path,
		Name:    cfg.Name,
		Version: vfs.SchemaVersion,
		Upgrade: vfs.Schema,
	})
}

func storeLabel(cfg config.StoreConfig) string {
	if cfg.InMemory {
		return "memory"
	}
	return cfg.Path
}
