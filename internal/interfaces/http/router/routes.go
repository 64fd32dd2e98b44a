package router

import (
	"github.com/gin-gonic/gin"

	"thumbnail-ai-api/internal/interfaces/http/handler"
)

// Handlers 业务处理器集合
type Handlers struct {
	Thumbnail *handler.ThumbnailHandler
	Analysis  *handler.AnalysisHandler
	History   *handler.HistoryHandler
	Health    *handler.HealthHandler
}

// RegisterRoutes 注册业务路由，limited 为需要限流的模型调用路由
func RegisterRoutes(api *gin.RouterGroup, h *Handlers, limit gin.HandlerFunc) {
	// 模型调用
	api.POST("/generate", limit, h.Thumbnail.Generate)
	api.POST("/regenerate", limit, h.Thumbnail.Regenerate)
	api.POST("/analyze", limit, h.Analysis.Analyze)

	// 历史记录
	history := api.Group("/history")
	{
		history.GET("", h.History.List)
		history.DELETE("", h.History.Clear)
		history.GET("/:id", h.History.Get)
		history.POST("/:id/restore", h.History.Restore)
	}
}
