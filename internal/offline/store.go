// Package offline хранит сообщения, созданные без подключения к backend, на устройстве.
// Такие сообщения не синхронизируются с backend и не получают ключ автора.
package offline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/localstore"
	"github.com/shenikar/neighborhood_alerts/internal/metrics"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/sirupsen/logrus"
)

// Store - массив офлайн-сообщений под ключом neighborhoodAlerts, новые сначала
type Store struct {
	kv     localstore.Store
	logger *logrus.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewStore создает Store поверх локального хранилища
func NewStore(kv localstore.Store, logger *logrus.Logger) *Store {
	return &Store{kv: kv, logger: logger, now: time.Now}
}

// List возвращает сохраненные сообщения или пустой список
func (s *Store) List(ctx context.Context) ([]*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Create сохраняет сообщение локально. id - текущее время в миллисекундах.
func (s *Store) Create(ctx context.Context, draft models.AlertDraft) (*models.Alert, error) {
	const op = "create_alert_offline"

	s.mu.Lock()
	defer s.mu.Unlock()

	alerts, err := s.load(ctx)
	if err != nil {
		metrics.ObserveOperation(op, err)
		return nil, err
	}

	now := s.now()
	alert := &models.Alert{
		ID:          now.UnixMilli(),
		Type:        draft.Type,
		Title:       draft.Title,
		Description: draft.Description,
		Location:    draft.Location,
		ImageURL:    draft.ImageURL,
		CreatedAt:   now.UTC(),
		Comments:    []models.Comment{},
	}

	alerts = append([]*models.Alert{alert}, alerts...)
	if err := localstore.SetJSON(ctx, s.kv, localstore.KeyOfflineAlerts, alerts); err != nil {
		metrics.ObserveOperation(op, err)
		return nil, fmt.Errorf("offline: failed to save alerts: %w", err)
	}

	metrics.ObserveOperation(op, nil)
	s.logger.WithFields(logrus.Fields{
		"service":  "offline",
		"alert_id": alert.ID,
		"count":    len(alerts),
	}).Info("Alert stored locally")
	return alert, nil
}

func (s *Store) load(ctx context.Context) ([]*models.Alert, error) {
	alerts := make([]*models.Alert, 0)
	if _, err := localstore.GetJSON(ctx, s.kv, localstore.KeyOfflineAlerts, &alerts); err != nil {
		return nil, fmt.Errorf("offline: failed to load alerts: %w", err)
	}
	for _, a := range alerts {
		if a.Comments == nil {
			a.Comments = []models.Comment{}
		}
	}
	return alerts, nil
}
