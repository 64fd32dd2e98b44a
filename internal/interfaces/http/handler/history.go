package handler

import (
	"github.com/gin-gonic/gin"

	"thumbnail-ai-api/internal/application/history"
	"thumbnail-ai-api/internal/interfaces/http/dto"
)

// HistoryHandler 历史记录处理器
type HistoryHandler struct {
	service *history.Service
}

// NewHistoryHandler 创建历史记录处理器
func NewHistoryHandler(service *history.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List 获取历史记录，最新在前
// @Summary 历史记录列表
// @Tags History
// @Produce json
// @Success 200 {object} dto.HistoryListResponse
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context())
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.HistoryListResponse{Entries: entries})
}

// Get 获取单条历史记录
// @Summary 历史记录详情
// @Tags History
// @Produce json
// @Param id path string true "记录 ID"
// @Failure 404 {object} dto.ErrorResponse
// @Router /history/{id} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, entry)
}

// Restore 将历史记录恢复为当前工作区
// @Summary 恢复历史记录
// @Tags History
// @Produce json
// @Param id path string true "记录 ID"
// @Failure 404 {object} dto.ErrorResponse
// @Router /history/{id}/restore [post]
func (h *HistoryHandler) Restore(c *gin.Context) {
	ws, err := h.service.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, ws)
}

// Clear 清空历史记录
// @Summary 清空历史记录
// @Tags History
// @Success 204
// @Router /history [delete]
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		dto.AppError(c, err)
		return
	}
	dto.NoContent(c)
}
