package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1. Если заданы API_KEYS,
// все маршруты, кроме health-check, требуют ключ.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("")
	if len(h.cfg.APIKeys) > 0 {
		protected.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	}

	// Маршруты для управления сообщениями
	alerts := protected.Group("/alerts")
	{
		alerts.POST("", h.createAlert)
		alerts.GET("", h.listAlerts)
		alerts.PUT("/:id", h.updateAlert)
		alerts.DELETE("/:id", h.deleteAlert)
		alerts.GET("/:id/permission", h.checkPermission)
		alerts.GET("/:id/comments", h.listComments)
		alerts.POST("/:id/comments", h.addComment)
	}

	protected.POST("/uploads", h.uploadImage)
	protected.GET("/profile/nickname", h.lastNickname)
	protected.GET("/location/fallback", h.fallbackLocation)

	// Ленты изменений
	realtime := protected.Group("/realtime")
	{
		realtime.GET("/alerts", h.streamAlerts)
		realtime.GET("/alerts/:id/comments", h.streamComments)
	}
}
