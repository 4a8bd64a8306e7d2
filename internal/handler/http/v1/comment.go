package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
)

// @Summary Add a comment
// @Description Adds a comment to an alert and remembers the nickname on this device.
// @Tags Comments
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Alert ID"
// @Param comment body CreateCommentRequest true "Comment"
// @Success 201 {object} CommentResponse
// @Failure 400 {object} ErrorResponse "Invalid alert ID or request body"
// @Failure 503 {object} ErrorResponse "Backend not configured"
// @Router /alerts/{id}/comments [post]
func (h *Handler) addComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "addComment").WithField("id", id)

	var input CreateCommentRequest
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

	comment, err := h.alertService.AddComment(c.Request.Context(), id, input.UserName, input.Content)
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToCommentResponse(*comment))
}

// @Summary List comments
// @Description Comments of an alert, oldest first.
// @Tags Comments
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Alert ID"
// @Success 200 {array} CommentResponse
// @Failure 400 {object} ErrorResponse "Invalid alert ID"
// @Failure 503 {object} ErrorResponse "Backend not configured"
// @Router /alerts/{id}/comments [get]
func (h *Handler) listComments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	log := h.logger.WithField("method", "listComments").WithField("id", id)

	comments, err := h.alertService.ListComments(c.Request.Context(), id)
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToCommentResponses(comments))
}

// @Summary Last nickname
// @Description Nickname used for the last comment on this device.
// @Tags Comments
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} NicknameResponse
// @Router /profile/nickname [get]
func (h *Handler) lastNickname(c *gin.Context) {
	c.JSON(http.StatusOK, NicknameResponse{UserName: h.alertService.LastNickname(c.Request.Context())})
}
