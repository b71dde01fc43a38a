package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/filevault/internal/conf"
	"github.com/lk2023060901/filevault/internal/data"
	filebiz "github.com/lk2023060901/filevault/internal/file/biz"
	filedata "github.com/lk2023060901/filevault/internal/file/data"
	fileservice "github.com/lk2023060901/filevault/internal/file/service"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"github.com/lk2023060901/filevault/internal/server"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	// Initialize data layer
	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize repositories and store adapters
	fileRepo := filedata.NewFileRepo(d.DB)
	blobStore := filedata.NewMinIOBlobStore(d.MinIO, config.Storage.Bucket, config.Storage.PublicBaseURL)
	statsCache := filedata.NewRedisStatsCache(d.Redis, config.Storage.StatsCacheTTL, log)

	// Initialize the deduplication engine
	fileUseCase := filebiz.NewFileUseCase(fileRepo, blobStore, statsCache, &filebiz.Config{
		PresignTTL:      config.Storage.PresignTTL,
		MaxUploadSize:   config.Storage.MaxUploadSize,
		DefaultPageSize: config.Storage.DefaultPageSize,
		MaxPageSize:     config.Storage.MaxPageSize,
	}, log)

	// Initialize services and HTTP server
	fileService := fileservice.NewFileService(fileUseCase, log)
	httpServer := server.NewHTTPServer(config, log, fileService, d.Redis)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
