package relay

import (
	"context"
	"sync"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/sirupsen/logrus"
)

// Worker - структура для пересылки событий из источника в Publisher
type Worker struct {
	source     feed.Source
	publisher  Publisher
	logger     *logrus.Logger
	tables     []string
	retryDelay time.Duration

	wg sync.WaitGroup
}

// NewWorker создает новый Worker для указанных таблиц
func NewWorker(source feed.Source, publisher Publisher, logger *logrus.Logger, retryDelay time.Duration, tables ...string) *Worker {
	return &Worker{
		source:     source,
		publisher:  publisher,
		logger:     logger,
		tables:     tables,
		retryDelay: retryDelay,
	}
}

// Start запускает по горутине на таблицу
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting realtime relay...")
	for _, table := range w.tables {
		w.wg.Add(1)
		go func(table string) {
			defer w.wg.Done()
			w.run(ctx, table)
		}(table)
	}
}

// Wait блокируется до остановки всех горутин
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, table string) {
	log := w.logger.WithField("table", table)
	for {
		stream, err := w.source.Stream(ctx, table)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.WithError(err).Errorf("Failed to open change stream. Retrying in %v", w.retryDelay)
			if !w.sleep(ctx) {
				break
			}
			continue
		}

		log.Info("Relaying change stream")
		for payload := range stream {
			if err := w.publisher.Publish(ctx, table, payload); err != nil {
				// событие теряется: подписчики перечитывают список при переподключении
				log.WithError(err).Error("Failed to relay change event")
			}
		}

		if ctx.Err() != nil {
			break
		}
		log.Warnf("Change stream closed. Reconnecting in %v", w.retryDelay)
		if !w.sleep(ctx) {
			break
		}
	}
	log.Info("Stopping realtime relay.")
}

func (w *Worker) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
