// Package storage хранит изображения сообщений в бакете объектного хранилища.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ObjectClient - операции minio.Client, которые нужны хранилищу изображений
type ObjectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ImageStore загружает и удаляет изображения; публичный URL имеет вид <base>/<bucket>/<path>
type ImageStore struct {
	client  ObjectClient
	bucket  string
	baseURL string
}

// NewImageStore создает хранилище. publicBase - внешний адрес хранилища без завершающего "/".
func NewImageStore(client ObjectClient, bucket, publicBase string) *ImageStore {
	return &ImageStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBase, "/"),
	}
}

// PublicBase строит внешний адрес по endpoint, если STORAGE_PUBLIC_BASE не задан
func PublicBase(publicBase, endpoint string, useSSL bool) string {
	if publicBase != "" {
		return publicBase
	}
	scheme := "http://"
	if useSSL {
		scheme = "https://"
	}
	return scheme + endpoint
}

// PublicURL возвращает публичный URL объекта
func (s *ImageStore) PublicURL(path string) string {
	return s.baseURL + "/" + s.bucket + "/" + path
}

// PathFromURL извлекает путь объекта из публичного URL
func (s *ImageStore) PathFromURL(publicURL string) (string, error) {
	marker := "/" + s.bucket + "/"
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return "", fmt.Errorf("url %q does not point into bucket %q", publicURL, s.bucket)
	}
	path := publicURL[idx+len(marker):]
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "", fmt.Errorf("url %q has an empty object path", publicURL)
	}
	return path, nil
}

// Upload загружает объект и возвращает его публичный URL
func (s *ImageStore) Upload(ctx context.Context, path, contentType string, size int64, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, path, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=3600",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %q: %w", path, err)
	}
	return s.PublicURL(path), nil
}

// Remove удаляет объект по его публичному URL
func (s *ImageStore) Remove(ctx context.Context, publicURL string) error {
	path, err := s.PathFromURL(publicURL)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %q: %w", path, err)
	}
	return nil
}
