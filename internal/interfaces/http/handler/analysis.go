package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"thumbnail-ai-api/internal/application/analysis"
	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/interfaces/http/dto"
)

// AnalysisHandler 视觉分析处理器
type AnalysisHandler struct {
	service *analysis.Service
	timeout time.Duration
}

// NewAnalysisHandler 创建视觉分析处理器
func NewAnalysisHandler(service *analysis.Service, timeout time.Duration) *AnalysisHandler {
	return &AnalysisHandler{service: service, timeout: timeout}
}

// Analyze 标题建议或点击率对比
// @Summary 视觉分析
// @Tags Analysis
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeRequest true "分析参数"
// @Success 200 {object} dto.TitlesResponse
// @Success 200 {object} dto.CTRResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /analyze [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req dto.AnalyzeRequest
	if !bindJSON(c, &req) {
		return
	}

	svcReq := analysis.Request{Mode: req.Mode, Prompt: req.Prompt}
	// 未知模式不解码图片，保证无论载荷如何都返回同一错误
	if entity.AnalysisMode(req.Mode).Valid() {
		images, err := dto.DecodeImages(req.Images)
		if err != nil {
			dto.AppError(c, err)
			return
		}
		svcReq.Images = images
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	outcome, err := h.service.Analyze(ctx, svcReq)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.ToAnalyzeResponse(outcome))
}
