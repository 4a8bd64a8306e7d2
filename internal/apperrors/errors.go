// Package apperrors описывает классы ошибок, которые слой синхронизации
// возвращает вызывающему коду. Сообщения пригодны для показа пользователю.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable - backend не настроен, операция отклонена без сетевого вызова
	ErrBackendUnavailable = errors.New("backend not configured")
	// ErrPermissionDenied - ключ автора не совпал или записи нет
	ErrPermissionDenied = errors.New("no permission or record not found")
	// ErrRemote - backend отклонил запрос или он не выполнился
	ErrRemote = errors.New("operation failed")
	// ErrValidation - некорректные входные данные
	ErrValidation = errors.New("invalid input")
)

// RemoteError оборачивает причину отказа backend
type RemoteError struct {
	Op  string
	Err error
}

// Remote создает RemoteError для операции op
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRemote.Error(), e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// ValidationError описывает отклоненное поле
type ValidationError struct {
	Field  string
	Reason string
}

// Validation создает ValidationError
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Kind возвращает короткий код класса ошибки для ответа клиенту
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBackendUnavailable):
		return "not_configured"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	default:
		return "operation_failed"
	}
}
