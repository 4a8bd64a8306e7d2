package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shenikar/neighborhood_alerts/internal/backend"
	"github.com/shenikar/neighborhood_alerts/internal/config"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/shenikar/neighborhood_alerts/internal/relay"
	"github.com/shenikar/neighborhood_alerts/pkg/logger"
	redisclient "github.com/shenikar/neighborhood_alerts/pkg/redis"
	"github.com/sirupsen/logrus"
)

// relay пересылает LISTEN/NOTIFY backend в Redis pub/sub для шлюзов с REALTIME_DRIVER=redis.
// Запускается в одном экземпляре, чтобы события не дублировались.
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

	conn := backend.NewConnector(cfg)
	if !conn.IsConnected() {
		log.Fatal("Backend is not configured, nothing to relay")
	}
	defer conn.Close()

	// Контекст для graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPass,
		DB:         cfg.RedisDB,
		PoolSize:   cfg.RedisPoolSize,
		ClientName: "alerts-relay",
	})
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	publisher := relay.NewRedisPublisher(redisClient)
	source := feed.NewPostgresSource(conn, log)

	worker := relay.NewWorker(source, publisher, log, cfg.RelayRetryDelay, feed.TableAlerts, feed.TableComments)
	worker.Start(ctx)

	<-ctx.Done()
	log.Info("Received shutdown signal, stopping relay...")
	worker.Wait()
	log.Info("Relay stopped")
}
