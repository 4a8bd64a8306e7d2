package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shenikar/neighborhood_alerts/internal/authorship"
	"github.com/shenikar/neighborhood_alerts/internal/backend"
	"github.com/shenikar/neighborhood_alerts/internal/config"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
	v1 "github.com/shenikar/neighborhood_alerts/internal/handler/http/v1"
	"github.com/shenikar/neighborhood_alerts/internal/localstore"
	"github.com/shenikar/neighborhood_alerts/internal/metrics"
	"github.com/shenikar/neighborhood_alerts/internal/offline"
	"github.com/shenikar/neighborhood_alerts/internal/repository"
	"github.com/shenikar/neighborhood_alerts/internal/service"
	"github.com/shenikar/neighborhood_alerts/internal/storage"
	"github.com/shenikar/neighborhood_alerts/pkg/logger"
	"github.com/shenikar/neighborhood_alerts/pkg/objectstore"
	"github.com/shenikar/neighborhood_alerts/pkg/postgres"
	redisclient "github.com/shenikar/neighborhood_alerts/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/neighborhood_alerts/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Neighborhood Alerts Gateway API
// @version 1.0
// @description Device-local gateway for the neighborhood alerts map: alerts, comments, images and realtime changes.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL, err := postgres.MigrationURL(cfg.BackendURL, cfg.BackendKey)
	if err != nil {
		return err
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func openLocalStore(ctx context.Context, cfg *config.Config) (localstore.Store, error) {
	if cfg.LocalStore == "memory" {
		return localstore.NewMemoryStore(), nil
	}
	return localstore.OpenSQLite(ctx, cfg.LocalDBPath)
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxAge:     cfg.LogMaxAge,
		MaxBackups: cfg.LogMaxBackups,
	})

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Локальное хранилище устройства
	kv, err := openLocalStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer kv.Close()

	conn := backend.NewConnector(cfg)
	defer conn.Close()

	var (
		repo   service.AlertRepository
		source feed.Source
		images service.ImageStorage
	)
	if conn.IsConnected() {
		if cfg.RunMigrations {
			if err := runMigrations(cfg, log); err != nil {
				log.Fatalf("Failed to run database migrations: %v", err)
			}
		}

		dbpool, err := conn.Pool(ctx)
		if err != nil {
			log.Fatalf("Failed to create backend pool: %v", err)
		}
		repo = repository.NewAlertRepository(dbpool)

		switch cfg.RealtimeDriver {
		case config.RealtimeDriverRedis:
			redisClient, err := redisclient.NewRedisClient(ctx, redisclient.Options{
				Addr:       cfg.RedisAddr,
				Password:   cfg.RedisPass,
				DB:         cfg.RedisDB,
				PoolSize:   cfg.RedisPoolSize,
				ClientName: "alerts-gateway",
			})
			if err != nil {
				log.Fatalf("Failed to connect to Redis: %v", err)
			}
			defer redisClient.Close()
			source = feed.NewRedisSource(redisClient)
			log.Info("Realtime changes are read from Redis")
		default:
			source = feed.NewPostgresSource(conn, log)
			log.Info("Realtime changes are read from backend LISTEN/NOTIFY")
		}

		if cfg.StorageConfigured() {
			minioClient, err := objectstore.NewMinioClient(ctx, cfg.StorageEndpoint, cfg.StorageAccessKey,
				cfg.StorageSecretKey, cfg.StorageBucket, cfg.StorageUseSSL)
			if err != nil {
				log.Fatalf("Failed to connect to object storage: %v", err)
			}
			images = storage.NewImageStore(minioClient, cfg.StorageBucket,
				storage.PublicBase(cfg.StoragePublicBase, cfg.StorageEndpoint, cfg.StorageUseSSL))
		} else {
			log.Warn("Object storage is not configured, image uploads are disabled")
		}
		log.Info("Backend is configured")
	} else {
		log.Warn("Backend is not configured, running in offline mode")
	}

	// Инициализация сервисов
	authors := authorship.NewStore(kv)
	alertService := service.NewAlertService(conn, repo, authors, images, kv, log)
	offlineStore := offline.NewStore(kv, log)
	subscriber := feed.NewSubscriber(conn, source, log)

	// Инициализация хэндлеров
	handler := v1.NewHandler(alertService, offlineStore, subscriber, conn, log, cfg)

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
