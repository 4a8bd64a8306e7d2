package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	before := testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", "permission_denied"))

	ObserveOperation("test_op", apperrors.ErrPermissionDenied)
	ObserveOperation("test_op", nil)
	ObserveOperation("test_op", errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", "permission_denied")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", "ok")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(operationsTotal.WithLabelValues("test_op", "operation_failed")), 1.0)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(httpRequestDuration, "alerts_http_request_duration_seconds"))
}
