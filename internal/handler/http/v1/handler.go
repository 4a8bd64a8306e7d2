package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
	"github.com/shenikar/neighborhood_alerts/internal/config"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/shenikar/neighborhood_alerts/internal/service"
	"github.com/sirupsen/logrus"
)

// AuthorKeyHeader - заголовок с явным ключом автора для изменения и удаления
const AuthorKeyHeader = "X-Author-Key"

// OfflineStore - сообщения, сохраненные на устройстве без backend
type OfflineStore interface {
	List(ctx context.Context) ([]*models.Alert, error)
	Create(ctx context.Context, draft models.AlertDraft) (*models.Alert, error)
}

// FeedSubscriber - лента изменений таблиц backend
type FeedSubscriber interface {
	Subscribe(ctx context.Context, table string, filter *feed.Filter, onEvent func(feed.Event)) (feed.Subscription, error)
}

type Handler struct {
	alertService service.AlertService
	offline      OfflineStore
	subscriber   FeedSubscriber
	conn         service.Connectivity
	logger       *logrus.Logger
	validate     *validator.Validate
	cfg          *config.Config
}

func NewHandler(
	alertService service.AlertService,
	offline OfflineStore,
	subscriber FeedSubscriber,
	conn service.Connectivity,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	validate := validator.New()
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
	return &Handler{
		alertService: alertService,
		offline:      offline,
		subscriber:   subscriber,
		conn:         conn,
		logger:       logger,
		validate:     validate,
		cfg:          cfg,
	}
}

// writeError переводит ошибку сервиса в HTTP-ответ
func writeError(c *gin.Context, log *logrus.Entry, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	switch {
	case errors.Is(err, apperrors.ErrBackendUnavailable):
		status, message = http.StatusServiceUnavailable, apperrors.ErrBackendUnavailable.Error()
	case errors.Is(err, apperrors.ErrPermissionDenied):
		status, message = http.StatusForbidden, apperrors.ErrPermissionDenied.Error()
	case errors.Is(err, apperrors.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrRemote):
		status, message = http.StatusBadGateway, apperrors.ErrRemote.Error()
	}

	entry := log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	c.JSON(status, ErrorResponse{Error: message, Kind: apperrors.Kind(err)})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid alert ID"})
		return 0, false
	}
	return id, true
}

// @Summary Create a new alert
// @Description Create an alert. When the backend is not configured the alert is stored on the device only.
// @Tags Alerts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param alert body CreateAlertRequest true "Alert creation request"
// @Success 201 {object} AlertResponse
// @Failure 400 {object} ErrorResponse "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} ErrorResponse "Backend operation failed"
// @Router /alerts [post]
func (h *Handler) createAlert(c *gin.Context) {
	var input CreateAlertRequest
	log := h.logger.WithField("method", "createAlert")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: apperrors.Kind(apperrors.ErrValidation)})
		return
	}

	draft := DTOToAlertDraft(input)
	alert, err := h.alertService.CreateAlert(c.Request.Context(), draft)
	if errors.Is(err, apperrors.ErrBackendUnavailable) {
		alert, err = h.offline.Create(c.Request.Context(), draft)
		if err != nil {
			log.WithError(err).Error("Failed to store alert offline")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		resp := ModelToAlertResponse(alert)
		resp.Offline = true
		c.JSON(http.StatusCreated, resp)
		return
	}
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToAlertResponse(alert))
}

// @Summary Get a list of alerts
// @Description Newest first, with comments oldest first. Falls back to device-local alerts when the backend is not configured.
// @Tags Alerts
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} AlertListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} ErrorResponse "Backend operation failed"
// @Router /alerts [get]
func (h *Handler) listAlerts(c *gin.Context) {
	log := h.logger.WithField("method", "listAlerts")

	alerts, err := h.alertService.ListAlerts(c.Request.Context())
	if errors.Is(err, apperrors.ErrBackendUnavailable) {
		local, err := h.offline.List(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("Failed to list offline alerts")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		c.JSON(http.StatusOK, AlertListResponse{Alerts: ModelsToAlertResponses(local, true), Offline: true})
		return
	}
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, AlertListResponse{Alerts: ModelsToAlertResponses(alerts, false)})
}

// @Summary Update an existing alert
// @Description Partial update. Uses the author key stored on this device unless X-Author-Key is given.
// @Tags Alerts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Alert ID"
// @Param X-Author-Key header string false "Explicit author key"
// @Param alert body UpdateAlertRequest true "Alert update request"
// @Success 200 {object} AlertResponse
// @Failure 400 {object} ErrorResponse "Invalid alert ID or request body"
// @Failure 403 {object} ErrorResponse "Not the author or alert not found"
// @Failure 503 {object} ErrorResponse "Backend not configured"
// @Router /alerts/{id} [put]
func (h *Handler) updateAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "updateAlert").WithField("id", id)

	var input UpdateAlertRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: apperrors.Kind(apperrors.ErrValidation)})
		return
	}

	patch := DTOToAlertPatch(input)
	var (
		alert *models.Alert
		err   error
	)
	if key := c.GetHeader(AuthorKeyHeader); key != "" {
		alert, err = h.alertService.UpdateAlertWithKey(c.Request.Context(), id, patch, key)
	} else {
		alert, err = h.alertService.UpdateAlert(c.Request.Context(), id, patch)
	}
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelToAlertResponse(alert))
}

// @Summary Delete an alert
// @Description Deletes the alert, its comments and its image. Uses the author key stored on this device unless X-Author-Key is given.
// @Tags Alerts
// @Security ApiKeyAuth
// @Param id path int true "Alert ID"
// @Param X-Author-Key header string false "Explicit author key"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse "Invalid alert ID"
// @Failure 403 {object} ErrorResponse "Not the author or alert not found"
// @Failure 503 {object} ErrorResponse "Backend not configured"
// @Router /alerts/{id} [delete]
func (h *Handler) deleteAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "deleteAlert").WithField("id", id)

	var err error
	if key := c.GetHeader(AuthorKeyHeader); key != "" {
		_, err = h.alertService.DeleteAlertWithKey(c.Request.Context(), id, key)
	} else {
		_, err = h.alertService.DeleteAlert(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Check alert authorship
// @Description Reports whether this device holds the author key for the alert.
// @Tags Alerts
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Alert ID"
// @Success 200 {object} PermissionResponse
// @Failure 400 {object} ErrorResponse "Invalid alert ID"
// @Router /alerts/{id}/permission [get]
func (h *Handler) checkPermission(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, PermissionResponse{
		AlertID:  id,
		IsAuthor: h.alertService.IsAuthor(c.Request.Context(), id),
	})
}

// @Summary Fallback location
// @Description Map center used when device geolocation is unavailable.
// @Tags System
// @Produce json
// @Success 200 {object} LocationDTO
// @Router /location/fallback [get]
func (h *Handler) fallbackLocation(c *gin.Context) {
	c.JSON(http.StatusOK, locationToDTO(&models.FallbackLocation))
}

// @Summary Health check
// @Description Gateway liveness and backend configuration state.
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", BackendConnected: h.conn.IsConnected()})
}
