package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shenikar/neighborhood_alerts/internal/backend"
	"github.com/shenikar/neighborhood_alerts/internal/board"
	"github.com/shenikar/neighborhood_alerts/internal/config"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/shenikar/neighborhood_alerts/internal/repository"
	"github.com/shenikar/neighborhood_alerts/pkg/logger"
	redisclient "github.com/shenikar/neighborhood_alerts/pkg/redis"
	"github.com/sirupsen/logrus"
)

const clearScreen = "\033[H\033[2J"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// доска занимает stdout, логи идут в stderr и файл
	log := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxAge:     cfg.LogMaxAge,
		MaxBackups: cfg.LogMaxBackups,
		Console:    os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn := backend.NewConnector(cfg)
	defer conn.Close()
	if !conn.IsConnected() {
		log.Fatal("Backend is not configured, nothing to watch")
	}

	dbpool, err := conn.Pool(ctx)
	if err != nil {
		log.Fatalf("Failed to create backend pool: %v", err)
	}
	repo := repository.NewAlertRepository(dbpool)

	initial, err := repo.ListWithComments(ctx)
	if err != nil {
		log.Fatalf("Failed to load alerts: %v", err)
	}
	b := board.New(initial)

	var source feed.Source
	if cfg.RealtimeDriver == config.RealtimeDriverRedis {
		redisClient, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPass,
			DB:         cfg.RedisDB,
			PoolSize:   cfg.RedisPoolSize,
			ClientName: "alerts-watch",
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		source = feed.NewRedisSource(redisClient)
	} else {
		source = feed.NewPostgresSource(conn, log)
	}

	// события обеих таблиц сводятся в один поток, чтобы доска менялась последовательно
	events := make(chan feed.Event, 64)
	ended := make(chan string, 2)
	subscriber := feed.NewSubscriber(conn, source, log)
	for _, table := range []string{feed.TableAlerts, feed.TableComments} {
		sub, err := subscriber.Subscribe(ctx, table, nil, func(ev feed.Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Fatalf("Failed to subscribe to %s: %v", table, err)
		}
		defer sub.Unsubscribe()
		go func(table string, done <-chan struct{}) {
			<-done
			ended <- table
		}(table, sub.Done())
	}

	render := func() {
		_, _ = os.Stdout.WriteString(clearScreen)
		if err := b.Render(os.Stdout); err != nil {
			log.WithError(err).Error("Failed to render board")
		}
	}
	render()

	for {
		select {
		case <-ctx.Done():
			log.Info("Watch stopped")
			return
		case table := <-ended:
			if ctx.Err() == nil {
				log.WithField("table", table).Error("Change stream ended, board is no longer live")
			}
			return
		case ev := <-events:
			log.WithFields(logrus.Fields{"table": ev.Table, "type": ev.Type}).Debug("Change event applied")
			b.Apply(ev)
			render()
		}
	}
}
