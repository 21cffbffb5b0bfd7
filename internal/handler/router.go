package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aqstack/ragstore/internal/middleware"
)

type RouterDeps struct {
	Documents     *DocumentHandler
	Search        *SearchHandler
	AdmitInterval time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	admitLimit := middleware.RateLimit(deps.AdmitInterval)

	api.POST("/documents", admitLimit, deps.Documents.Upload)
	api.POST("/documents/website", admitLimit, deps.Documents.AdmitWebsite)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id", deps.Documents.Get)
	api.POST("/documents/:id/reprocess", deps.Documents.Reprocess)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	api.POST("/search", deps.Search.Search)
	api.POST("/context", deps.Search.Context)
}
