package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	if h.mediaDir != "" {
		r.Static("/media", h.mediaDir)
	}

	api := r.Group("/api")
	api.Use(SessionToken())
	{
		api.GET("/health", health)

		api.GET("/campaigns", h.listCampaigns)
		api.POST("/campaigns/filter", h.filterCampaigns)
		api.POST("/campaigns/reload", h.reloadCampaigns)
		api.GET("/campaigns/:id/visuals", h.listCampaignVisuals)

		api.POST("/compose/photo", h.uploadPhoto)
		api.PUT("/compose", h.updateCompose)
		api.GET("/compose/preview", h.previewCompose)
		api.POST("/compose/export", h.exportCompose)

		api.GET("/visuals/:id", h.getVisual)

		api.GET("/tickets/:code/qr", qrHandler)
	}
}
