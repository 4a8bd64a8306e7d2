package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/shenikar/neighborhood_alerts/internal/service"
)

// @Summary Upload an alert image
// @Description Uploads an image (image/*, up to 5 MiB) to the bucket and returns its public URL.
// @Tags Uploads
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param image formData file true "Image file"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorResponse "Missing file, wrong type or too large"
// @Failure 503 {object} ErrorResponse "Backend or storage not configured"
// @Router /uploads [post]
func (h *Handler) uploadImage(c *gin.Context) {
	log := h.logger.WithField("method", "uploadImage")

	// запас на заголовки multipart сверх лимита файла
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxImageSize+64*1024)

	header, err := c.FormFile("image")
	if err != nil {
		log.WithError(err).Warn("Missing image file")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required or too large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		log.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid image file"})
		return
	}
	defer file.Close()

	url, err := h.alertService.UploadImage(c.Request.Context(), models.ImageUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusCreated, UploadResponse{URL: url})
}
