// API server entry point for KeyIP-Chem.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	grpcserver "github.com/turtacn/KeyIP-Chem/internal/interfaces/grpc"
	httpserver "github.com/turtacn/KeyIP-Chem/internal/interfaces/http"
	"github.com/turtacn/KeyIP-Chem/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-Chem/internal/interfaces/http/middleware"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file (empty: defaults plus KEYIP_* environment)")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, levels, err := logging.NewLoggerWithSwitch(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting KeyIP-Chem API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.Int("port", cfg.Server.Port))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	infra, err := initInfrastructure(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svcOpts := []screening.Option{
		screening.WithLimits(cfg.Matcher),
		screening.WithPatternCacheSize(cfg.Cache.CompiledPatterns),
	}
	var screeningOpts []handlers.ScreeningOption
	if infra.redis != nil && cfg.Cache.Enabled {
		cache := redis.NewRedisCache(infra.redis, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix+"screen:"),
			redis.WithDefaultTTL(cfg.Cache.TTL))
		svcOpts = append(svcOpts, screening.WithResultCache(cache, cfg.Cache.TTL))
	}
	if infra.db != nil {
		compounds := repositories.NewCompoundRepository(infra.db.Pool(), logger)
		svcOpts = append(svcOpts, screening.WithCompoundRepository(compounds))
		screeningOpts = append(screeningOpts, handlers.WithCompoundStore(compounds))
	}
	if infra.minio != nil {
		screeningOpts = append(screeningOpts, handlers.WithLibraryStore(minio.NewLibraryRepository(infra.minio, logger)))
	}

	svc, err := screening.NewService(logger, metrics, svcOpts...)
	if err != nil {
		return err
	}

	healthHandler := handlers.NewHealthHandler(version, metrics, infra.healthCheckers()...)
	routerCfg := httpserver.RouterConfig{
		MoleculeHandler:  handlers.NewMoleculeHandler(svc),
		ScreeningHandler: handlers.NewScreeningHandler(svc, screeningOpts...),
		HealthHandler:    healthHandler,
		Logging:          middleware.DefaultLoggingConfig(),
		MaxBodySize:      cfg.Server.MaxBodySize,
		Logger:           logger,
		Metrics:          metrics,
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsCollector = collector
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.Server.AllowedOrigins
		routerCfg.CORS = &cors
	}
	server := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			if err := levels.Set(next.Log.Level); err != nil {
				logger.Warn("ignoring reloaded log level", logging.Err(err))
			}
			svc.SetLimits(next.Matcher)
			logger.Info("configuration reloaded",
				logging.String("log_level", levels.Level()),
				logging.Int64("step_budget", next.Matcher.StepBudget))
		}, func(err error) {
			logger.Warn("configuration reload failed", logging.Err(err))
		})
		if err != nil {
			logger.Warn("configuration watch disabled", logging.Err(err))
		}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcSrv, err = grpcserver.NewServer(cfg.GRPC,
			grpcserver.WithLogger(logger.Named("grpc")),
			grpcserver.WithMetrics(metrics))
		if err != nil {
			return err
		}
		go func() { errCh <- grpcSrv.Start() }()
		go grpcSrv.WatchHealth(ctx, healthHandler.Ready, 0)
	}

	select {
	case err := <-errCh:
		if grpcSrv != nil {
			_ = grpcSrv.Stop(context.Background())
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	if grpcSrv != nil {
		if err := grpcSrv.Stop(context.Background()); err != nil {
			logger.Error("gRPC server shutdown error", logging.Err(err))
		}
	}
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("HTTP server shutdown error", logging.Err(err))
	}
	logger.Info("API server stopped")
	return nil
}

//Personal.AI order the ending
