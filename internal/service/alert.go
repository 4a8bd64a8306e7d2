package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
	"github.com/shenikar/neighborhood_alerts/internal/authorship"
	"github.com/shenikar/neighborhood_alerts/internal/localstore"
	"github.com/shenikar/neighborhood_alerts/internal/metrics"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=alert.go -destination=mocks/mock_alert.go -package=mocks

// Connectivity сообщает, настроен ли backend
type Connectivity interface {
	IsConnected() bool
}

// AlertRepository определяет контракт для работы с таблицами alerts и comments.
// Операции *Owned фильтруют по id и author_key и возвращают apperrors.ErrPermissionDenied,
// если ни одна строка не подошла.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	UpdateOwned(ctx context.Context, id int64, authorKey string, patch models.AlertPatch) (*models.Alert, error)
	ImageURLOwned(ctx context.Context, id int64, authorKey string) (*string, error)
	DeleteOwned(ctx context.Context, id int64, authorKey string) (*models.Alert, error)
	ListWithComments(ctx context.Context) ([]*models.Alert, error)
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, alertID int64) ([]models.Comment, error)
}

// ImageStorage - бакет с изображениями сообщений
type ImageStorage interface {
	Upload(ctx context.Context, path, contentType string, size int64, body io.Reader) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

// AlertService определяет контракт для операций с сообщениями и комментариями
type AlertService interface {
	CreateAlert(ctx context.Context, draft models.AlertDraft) (*models.Alert, error)
	UpdateAlert(ctx context.Context, id int64, patch models.AlertPatch) (*models.Alert, error)
	UpdateAlertWithKey(ctx context.Context, id int64, patch models.AlertPatch, authorKey string) (*models.Alert, error)
	DeleteAlert(ctx context.Context, id int64) (*models.Alert, error)
	DeleteAlertWithKey(ctx context.Context, id int64, authorKey string) (*models.Alert, error)
	ListAlerts(ctx context.Context) ([]*models.Alert, error)
	IsAuthor(ctx context.Context, id int64) bool
	AddComment(ctx context.Context, alertID int64, userName, content string) (*models.Comment, error)
	ListComments(ctx context.Context, alertID int64) ([]models.Comment, error)
	LastNickname(ctx context.Context) string
	UploadImage(ctx context.Context, upload models.ImageUpload) (string, error)
}

type alertService struct {
	conn    Connectivity
	repo    AlertRepository
	authors *authorship.Store
	images  ImageStorage
	kv      localstore.Store
	logger  *logrus.Logger
	now     func() time.Time
}

// NewAlertService собирает сервис. images может быть nil, если хранилище не настроено.
func NewAlertService(
	conn Connectivity,
	repo AlertRepository,
	authors *authorship.Store,
	images ImageStorage,
	kv localstore.Store,
	logger *logrus.Logger,
) AlertService {
	return &alertService{
		conn:    conn,
		repo:    repo,
		authors: authors,
		images:  images,
		kv:      kv,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *alertService) requireBackend(op string) error {
	if s.conn.IsConnected() {
		return nil
	}
	metrics.ObserveOperation(op, apperrors.ErrBackendUnavailable)
	return fmt.Errorf("service: %s: %w", op, apperrors.ErrBackendUnavailable)
}

// remoteFailure оставляет ErrPermissionDenied как есть, остальное заворачивает в RemoteError
func remoteFailure(op string, err error) error {
	if errors.Is(err, apperrors.ErrPermissionDenied) {
		return fmt.Errorf("service: %s: %w", op, err)
	}
	return fmt.Errorf("service: %w", apperrors.Remote(op, err))
}

// CreateAlert создает сообщение и выдает устройству ключ автора
func (s *alertService) CreateAlert(ctx context.Context, draft models.AlertDraft) (*models.Alert, error) {
	const op = "create_alert"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "alert",
		"method":  "CreateAlert",
		"type":    draft.Type,
	})
	log.Info("Attempting to create a new alert")

	now := s.now()
	alert := &models.Alert{
		Type:        draft.Type,
		Title:       draft.Title,
		Description: draft.Description,
		Location:    draft.Location,
		ImageURL:    draft.ImageURL,
		AuthorKey:   authorship.NewToken(now),
		CreatedAt:   now.UTC(),
		Comments:    []models.Comment{},
	}

	if err := s.repo.Create(ctx, alert); err != nil {
		log.WithError(err).Error("Failed to create alert in repository")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	if err := s.authors.Put(ctx, alert.ID, alert.AuthorKey); err != nil {
		log.WithError(err).WithField("alert_id", alert.ID).Error("Alert created but author key was not stored")
		metrics.ObserveOperation(op, err)
		return nil, fmt.Errorf("service: alert %d created but author key was not stored: %w", alert.ID, err)
	}

	metrics.ObserveOperation(op, nil)
	log.WithField("alert_id", alert.ID).Info("Alert created successfully")
	return alert, nil
}

// UpdateAlert обновляет сообщение, используя ключ автора с этого устройства
func (s *alertService) UpdateAlert(ctx context.Context, id int64, patch models.AlertPatch) (*models.Alert, error) {
	const op = "update_alert"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}
	key, err := s.ownedKey(ctx, op, id)
	if err != nil {
		return nil, err
	}
	return s.UpdateAlertWithKey(ctx, id, patch, key)
}

// UpdateAlertWithKey обновляет сообщение с явно переданным ключом автора
func (s *alertService) UpdateAlertWithKey(ctx context.Context, id int64, patch models.AlertPatch, authorKey string) (*models.Alert, error) {
	const op = "update_alert"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":  "alert",
		"method":   "UpdateAlert",
		"alert_id": id,
	})
	log.Info("Attempting to update alert")

	updated, err := s.repo.UpdateOwned(ctx, id, authorKey, patch)
	if err != nil {
		log.WithError(err).Warn("Failed to update alert")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	metrics.ObserveOperation(op, nil)
	log.Info("Alert updated successfully")
	return updated, nil
}

// DeleteAlert удаляет сообщение, используя ключ автора с этого устройства
func (s *alertService) DeleteAlert(ctx context.Context, id int64) (*models.Alert, error) {
	const op = "delete_alert"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}
	key, err := s.ownedKey(ctx, op, id)
	if err != nil {
		return nil, err
	}
	return s.DeleteAlertWithKey(ctx, id, key)
}

// DeleteAlertWithKey удаляет сообщение с явно переданным ключом автора.
// Ошибка удаления изображения только логируется.
func (s *alertService) DeleteAlertWithKey(ctx context.Context, id int64, authorKey string) (*models.Alert, error) {
	const op = "delete_alert"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":  "alert",
		"method":   "DeleteAlert",
		"alert_id": id,
	})
	log.Info("Attempting to delete alert")

	imageURL, err := s.repo.ImageURLOwned(ctx, id, authorKey)
	if err != nil {
		log.WithError(err).Warn("Failed to read alert before delete")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	deleted, err := s.repo.DeleteOwned(ctx, id, authorKey)
	if err != nil {
		log.WithError(err).Warn("Failed to delete alert")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	// изображение удаляется только после удаления строки
	if imageURL != nil && *imageURL != "" {
		s.removeImage(ctx, log, *imageURL)
	}

	if err := s.authors.Revoke(ctx, id); err != nil {
		log.WithError(err).Error("Alert deleted but author key was not revoked")
		metrics.ObserveOperation(op, err)
		return nil, fmt.Errorf("service: alert %d deleted but author key was not revoked: %w", id, err)
	}

	metrics.ObserveOperation(op, nil)
	log.Info("Alert deleted successfully")
	return deleted, nil
}

func (s *alertService) removeImage(ctx context.Context, log *logrus.Entry, imageURL string) {
	if s.images == nil {
		log.WithField("image_url", imageURL).Warn("Image storage is not configured, skipping image cleanup")
		return
	}
	if err := s.images.Remove(ctx, imageURL); err != nil {
		metrics.ImageCleanupFailures.Inc()
		log.WithError(err).WithField("image_url", imageURL).Warn("Failed to remove alert image")
	}
}

// ListAlerts возвращает сообщения от новых к старым, комментарии - от старых к новым
func (s *alertService) ListAlerts(ctx context.Context) ([]*models.Alert, error) {
	const op = "list_alerts"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "alert",
		"method":  "ListAlerts",
	})

	alerts, err := s.repo.ListWithComments(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list alerts from repository")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	metrics.ObserveOperation(op, nil)
	log.WithField("count", len(alerts)).Debug("Alerts listed successfully")
	return alerts, nil
}

// IsAuthor сообщает, хранит ли устройство ключ автора для сообщения
func (s *alertService) IsAuthor(ctx context.Context, id int64) bool {
	_, ok, err := s.authors.Check(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("alert_id", id).Warn("Failed to check author key")
		return false
	}
	return ok
}

func (s *alertService) ownedKey(ctx context.Context, op string, id int64) (string, error) {
	key, ok, err := s.authors.Check(ctx, id)
	if err != nil {
		metrics.ObserveOperation(op, err)
		return "", fmt.Errorf("service: %s: %w", op, err)
	}
	if !ok {
		metrics.ObserveOperation(op, apperrors.ErrPermissionDenied)
		return "", fmt.Errorf("service: %s: %w", op, apperrors.ErrPermissionDenied)
	}
	return key, nil
}
