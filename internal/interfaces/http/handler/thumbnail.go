package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"thumbnail-ai-api/internal/application/history"
	"thumbnail-ai-api/internal/application/thumbnail"
	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/interfaces/http/dto"
	"thumbnail-ai-api/pkg/logger"
)

// ThumbnailHandler 缩略图生成处理器
type ThumbnailHandler struct {
	orchestrator *thumbnail.Orchestrator
	regenerator  *thumbnail.Regenerator
	history      *history.Service
	timeout      time.Duration
}

// NewThumbnailHandler 创建缩略图生成处理器
// timeout 为单个请求的整体预算，<=0 时不额外限制
func NewThumbnailHandler(orchestrator *thumbnail.Orchestrator, regenerator *thumbnail.Regenerator, historySvc *history.Service, timeout time.Duration) *ThumbnailHandler {
	return &ThumbnailHandler{
		orchestrator: orchestrator,
		regenerator:  regenerator,
		history:      historySvc,
		timeout:      timeout,
	}
}

// Generate 批量生成缩略图
// @Summary 批量生成缩略图
// @Tags Thumbnails
// @Accept json
// @Produce json
// @Param body body dto.GenerateRequest true "生成参数"
// @Success 200 {object} dto.GenerateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /generate [post]
func (h *ThumbnailHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	genReq, err := req.ToGenerationRequest()
	if err != nil {
		dto.AppError(c, err)
		return
	}

	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	images, err := h.orchestrator.Generate(ctx, genReq)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	resp := dto.GenerateResponse{Images: images}
	// 历史写入失败不影响已生成的图片
	entry, err := h.history.Record(c.Request.Context(), genReq.Prompt, images, genReq.AspectRatio)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to record history", err)
	} else {
		resp.HistoryID = entry.ID
	}

	dto.Success(c, resp)
}

// Regenerate 重新生成单张缩略图
// @Summary 单图重绘
// @Tags Thumbnails
// @Accept json
// @Produce json
// @Param body body dto.RegenerateRequest true "重绘参数"
// @Success 200 {object} dto.RegenerateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /regenerate [post]
func (h *ThumbnailHandler) Regenerate(c *gin.Context) {
	var req dto.RegenerateRequest
	if !bindJSON(c, &req) {
		return
	}

	refs, err := dto.DecodeImages(req.Images)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	ctx, cancel := h.withTimeout(c.Request.Context())
	defer cancel()

	images, err := h.regenerator.Regenerate(ctx, thumbnail.RegenerateRequest{
		Prompt:          req.Prompt,
		ReferenceImages: refs,
		AspectRatio:     entity.ParseAspectRatio(req.AspectRatio),
		Index:           req.Index,
		Current:         req.Current,
		HistoryID:       req.HistoryID,
	})
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.RegenerateResponse{Images: images})
}

func (h *ThumbnailHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
