package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shenikar/neighborhood_alerts/internal/localstore"
	"github.com/shenikar/neighborhood_alerts/internal/metrics"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/sirupsen/logrus"
)

// AddComment добавляет комментарий и запоминает ник на устройстве
func (s *alertService) AddComment(ctx context.Context, alertID int64, userName, content string) (*models.Comment, error) {
	const op = "add_comment"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":  "comment",
		"method":   "AddComment",
		"alert_id": alertID,
	})

	userName = strings.TrimSpace(userName)
	if err := s.kv.Set(ctx, localstore.KeyUsername, []byte(userName)); err != nil {
		// ошибка сохранения ника не прерывает добавление комментария
		log.WithError(err).Warn("Failed to remember nickname")
	}

	comment := &models.Comment{
		AlertID:   alertID,
		UserName:  userName,
		Content:   strings.TrimSpace(content),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		log.WithError(err).Error("Failed to create comment in repository")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	metrics.ObserveOperation(op, nil)
	log.WithField("comment_id", comment.ID).Info("Comment added successfully")
	return comment, nil
}

// ListComments возвращает комментарии сообщения от старых к новым
func (s *alertService) ListComments(ctx context.Context, alertID int64) ([]models.Comment, error) {
	const op = "list_comments"
	if err := s.requireBackend(op); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListComments(ctx, alertID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service":  "comment",
			"method":   "ListComments",
			"alert_id": alertID,
		}).WithError(err).Error("Failed to list comments from repository")
		metrics.ObserveOperation(op, err)
		return nil, remoteFailure(op, err)
	}

	metrics.ObserveOperation(op, nil)
	return comments, nil
}

// LastNickname возвращает последний использованный ник или пустую строку
func (s *alertService) LastNickname(ctx context.Context) string {
	raw, err := s.kv.Get(ctx, localstore.KeyUsername)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			s.logger.WithError(err).Warn("Failed to read nickname")
		}
		return ""
	}
	return string(raw)
}
