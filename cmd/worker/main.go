// Screening worker entry point for KeyIP-Chem.  It consumes screening jobs
// from Kafka and publishes their results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/KeyIP-Chem/internal/application/screening"
	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/messaging/kafka"
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

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	defaultHealthPort       = 8081
	defaultLockTTL          = 5 * time.Minute
	shutdownTimeout         = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultWorkerConfigPath, "path to configuration file (empty: defaults plus KEYIP_* environment)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for /healthz, /readyz and /metrics")
	flag.Parse()

	if err := run(*configPath, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, healthPort int) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka is disabled; set kafka.enabled to run the worker")
	}

	logger, levels, err := logging.NewLoggerWithSwitch(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting KeyIP-Chem worker",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("job_topic", cfg.Kafka.JobTopic),
		logging.String("result_topic", cfg.Kafka.ResultTopic))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Metrics.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewAppMetrics(collector)

	topics, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger)
	if err != nil {
		return err
	}
	if err := topics.EnsureTopics(ctx, kafka.ScreeningTopics(cfg.Kafka.JobTopic, cfg.Kafka.ResultTopic)); err != nil {
		_ = topics.Close()
		return err
	}
	_ = topics.Close()

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka), logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	var (
		jobOpts  = []screening.JobOption{screening.WithJobMetrics(metrics)}
		checkers []handlers.HealthChecker
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		jobOpts = append(jobOpts, screening.WithJobLocks(redis.NewLockFactory(client, cfg.Redis.KeyPrefix, logger)))
		checkers = append(checkers, handlers.NewCheck("redis", client.Ping))
	}
	if cfg.MinIO.Enabled {
		client, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		jobOpts = append(jobOpts, screening.WithLibraries(minio.NewLibraryRepository(client, logger)))
		checkers = append(checkers, handlers.NewCheck("minio", client.HealthCheck))
	}

	svc, err := screening.NewService(logger, metrics,
		screening.WithLimits(cfg.Matcher),
		screening.WithPatternCacheSize(cfg.Cache.CompiledPatterns))
	if err != nil {
		return err
	}
	processor := screening.NewJobProcessor(svc, producer, screening.JobProcessorConfig{
		ResultTopic: cfg.Kafka.ResultTopic,
		LockTTL:     defaultLockTTL,
	}, logger, jobOpts...)

	consumerCfg := kafka.ConsumerConfigFrom(cfg.Kafka)
	consumerCfg.RetryConfig = kafka.RetryConfig{
		MaxRetries:      3,
		RetryBackoff:    500 * time.Millisecond,
		MaxRetryBackoff: 10 * time.Second,
		DeadLetterTopic: kafka.TopicScreeningDeadLetter,
	}
	consumer, err := kafka.NewConsumer(consumerCfg, logger)
	if err != nil {
		return err
	}
	consumer.SetDeadLetter(producer)
	consumer.Subscribe(cfg.Kafka.JobTopic, processor.Handle)

	healthHandler := handlers.NewHealthHandler(version, metrics, checkers...)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    healthHandler,
		Logging:          middleware.DefaultLoggingConfig(),
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	healthSrv := httpserver.NewServer(config.ServerConfig{Port: healthPort}, router, logger)
	go func() {
		if err := healthSrv.Start(); err != nil {
			logger.Error("health server error", logging.Err(err))
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.GRPC.Enabled {
		grpcSrv, err = grpcserver.NewServer(cfg.GRPC,
			grpcserver.WithLogger(logger.Named("grpc")),
			grpcserver.WithMetrics(metrics))
		if err != nil {
			return err
		}
		go func() {
			if err := grpcSrv.Start(); err != nil {
				logger.Error("grpc health server error", logging.Err(err))
			}
		}()
		go grpcSrv.WatchHealth(ctx, healthHandler.Ready, 0)
	}

	if configPath != "" {
		err := config.Watch(configPath, func(next *config.Config) {
			if err := levels.Set(next.Log.Level); err != nil {
				logger.Warn("ignoring reloaded log level", logging.Err(err))
			}
			svc.SetLimits(next.Matcher)
			logger.Info("configuration reloaded", logging.String("log_level", levels.Level()))
		}, func(err error) {
			logger.Warn("configuration reload failed", logging.Err(err))
		})
		if err != nil {
			logger.Warn("configuration watch disabled", logging.Err(err))
		}
	}

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	logger.Info("worker started")

	<-ctx.Done()
	logger.Info("received shutdown signal, draining in-flight jobs")

	if err := consumer.Close(); err != nil {
		logger.Error("consumer close error", logging.Err(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		if err := grpcSrv.Stop(shutdownCtx); err != nil {
			logger.Error("grpc server shutdown error", logging.Err(err))
		}
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	logger.Info("KeyIP-Chem worker stopped",
		logging.Int64("processed", consumer.Processed()),
		logging.Int64("failed", consumer.Failed()),
		logging.Int64("dead_lettered", consumer.DeadLettered()))
	return nil
}

//Personal.AI order the ending
