package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
	"github.com/shenikar/neighborhood_alerts/internal/metrics"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxImageSize - максимальный размер изображения (5 МиБ)
const MaxImageSize = 5 * 1024 * 1024

// ImageObjectPath возвращает путь объекта вида alerts/2024/06/10/<uuid>.jpg
func ImageObjectPath(now time.Time, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	return fmt.Sprintf("alerts/%04d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}

// UploadImage проверяет файл и загружает его в бакет, возвращая публичный URL
func (s *alertService) UploadImage(ctx context.Context, upload models.ImageUpload) (string, error) {
	const op = "upload_image"

	if !strings.HasPrefix(upload.ContentType, "image/") {
		return "", apperrors.Validation("image", "must be an image file")
	}
	if upload.Size <= 0 || upload.Size > MaxImageSize {
		return "", apperrors.Validation("image", "must be between 1 byte and 5 MiB")
	}

	if err := s.requireBackend(op); err != nil {
		return "", err
	}
	if s.images == nil {
		metrics.ObserveOperation(op, apperrors.ErrBackendUnavailable)
		return "", fmt.Errorf("service: image storage: %w", apperrors.ErrBackendUnavailable)
	}

	path := ImageObjectPath(s.now().UTC(), upload.Name)
	log := s.logger.WithFields(logrus.Fields{
		"service": "image",
		"method":  "UploadImage",
		"path":    path,
		"size":    upload.Size,
	})

	url, err := s.images.Upload(ctx, path, upload.ContentType, upload.Size, upload.Body)
	if err != nil {
		log.WithError(err).Error("Failed to upload image")
		metrics.ObserveOperation(op, err)
		return "", remoteFailure(op, err)
	}

	metrics.ObserveOperation(op, nil)
	log.Info("Image uploaded successfully")
	return url, nil
}
