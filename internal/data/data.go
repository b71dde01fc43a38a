package data

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/filevault/internal/conf"
	filedata "github.com/lk2023060901/filevault/internal/file/data"
	"github.com/lk2023060901/filevault/internal/pkg/database"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"github.com/lk2023060901/filevault/internal/pkg/minio"
	"github.com/lk2023060901/filevault/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data bundles all external store clients
type Data struct {
	DB     *database.DB
	Redis  *redis.Client
	MinIO  *minio.Client
	Logger *logger.Logger
}

// NewData initializes Postgres, Redis and MinIO, returning a cleanup
// function that releases them in reverse order
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	if config.Database.AutoMigrate {
		if err := db.AutoMigrate(&filedata.FileRecordPO{}, &filedata.DedupCountersPO{}); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	redisClient, err := redis.New(&config.Redis, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init redis: %w", err)
	}

	minioClient, err := minio.NewClient(&config.MinIO, log.Logger)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := minioClient.EnsureBucket(ctx, config.Storage.Bucket); err != nil {
		minioClient.Close()
		redisClient.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	d := &Data{
		DB:     db,
		Redis:  redisClient,
		MinIO:  minioClient,
		Logger: log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := minioClient.Close(); err != nil {
			log.Warn("failed to close minio client", zap.Error(err))
		}
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	return d, cleanup, nil
}
