package main

import (
	"context"

	"github.com/turtacn/KeyIP-Chem/internal/config"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-Chem/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-Chem/internal/interfaces/http/handlers"
)

// infrastructure holds the optional backing services.  A nil field means the
// section is disabled in config.
type infrastructure struct {
	db    *postgres.Connection
	redis *redis.Client
	minio *minio.Client
}

func initInfrastructure(ctx context.Context, cfg *config.Config, logger logging.Logger) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.Database.Enabled {
		conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		infra.db = conn
		if cfg.Database.MigrationPath != "" {
			if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
				infra.Close()
				return nil, err
			}
		}
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.redis = client
	}

	if cfg.MinIO.Enabled {
		client, err := minio.NewClient(ctx, cfg.MinIO, logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		if err := client.EnsureBucket(ctx, client.DefaultBucket()); err != nil {
			infra.Close()
			return nil, err
		}
		infra.minio = client
	}

	logger.Info("API server infrastructure initialized",
		logging.Bool("postgres", infra.db != nil),
		logging.Bool("redis", infra.redis != nil),
		logging.Bool("minio", infra.minio != nil))
	return infra, nil
}

// healthCheckers adapts the enabled clients for the readiness check.
func (i *infrastructure) healthCheckers() []handlers.HealthChecker {
	var checkers []handlers.HealthChecker
	if i.db != nil {
		checkers = append(checkers, handlers.NewCheck("postgres", i.db.HealthCheck))
	}
	if i.redis != nil {
		checkers = append(checkers, handlers.NewCheck("redis", i.redis.Ping))
	}
	if i.minio != nil {
		checkers = append(checkers, handlers.NewCheck("minio", i.minio.HealthCheck))
	}
	return checkers
}

func (i *infrastructure) Close() {
	if i.minio != nil {
		_ = i.minio.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		i.db.Close()
	}
}

//Personal.AI order the ending
