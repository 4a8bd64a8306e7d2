// Package metrics регистрирует счетчики Prometheus шлюза.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_operations_total",
			Help: "Record operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	feedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_feed_events_total",
			Help: "Change feed events delivered to subscribers",
		},
		[]string{"table", "type"},
	)

	// ActiveSubscriptions - число открытых подписок на ленту изменений
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alerts_feed_active_subscriptions",
		Help: "Open change feed subscriptions",
	})

	// ImageCleanupFailures - неудачные попытки удалить изображение удаленного сообщения
	ImageCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_image_cleanup_failures_total",
		Help: "Image removals that failed during alert delete",
	})

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alerts_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveOperation учитывает результат операции; outcome - класс ошибки или "ok"
func ObserveOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.Kind(err)
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveFeedEvent учитывает доставленное событие ленты
func ObserveFeedEvent(table, eventType string) {
	feedEventsTotal.WithLabelValues(table, eventType).Inc()
}

// Middleware записывает длительность HTTP-запросов
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
