package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError_WrapsCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := fmt.Errorf("service: %w", Remote("insert alert", cause))

	assert.ErrorIs(t, err, ErrRemote)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrPermissionDenied)

	var remote *RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, "insert alert", remote.Op)
	assert.Contains(t, err.Error(), "operation failed")
}

func TestRemote_NilCause(t *testing.T) {
	assert.NoError(t, Remote("noop", nil))
}

func TestValidationError(t *testing.T) {
	err := Validation("content_type", "must be an image")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid input: content_type must be an image", err.Error())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "not_configured", Kind(fmt.Errorf("x: %w", ErrBackendUnavailable)))
	assert.Equal(t, "permission_denied", Kind(ErrPermissionDenied))
	assert.Equal(t, "validation_failed", Kind(Validation("title", "required")))
	assert.Equal(t, "operation_failed", Kind(Remote("list", errors.New("boom"))))
}
