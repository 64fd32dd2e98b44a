// Package analysis 提供缩略图视觉分析（标题建议、CTR 对比）
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/service"
	apperrors "thumbnail-ai-api/pkg/errors"
	"thumbnail-ai-api/pkg/logger"
	"thumbnail-ai-api/pkg/metrics"
	"thumbnail-ai-api/pkg/tracer"
)

const defaultTitleContext = "YouTube video"

const titlesPrompt = "Analyze this image and propose 5 catchy, high-CTR YouTube titles that match the visual content and the context: %s. Return only a JSON array of strings."

const ctrPrompt = "Compare these two YouTube thumbnails. Which one will perform better in terms of Click-Through Rate (CTR)? " +
	"Consider color psychology, composition, clarity, and emotional impact. Provide a winner and a detailed justification for both. " +
	"Return JSON format: { winner: 1 or 2, reasoning: 'text', comparison: { clarity: 'text', colors: 'text', impact: 'text' } }"

// Request 分析请求
type Request struct {
	Mode   string
	Images []entity.GeneratedImage
	Prompt string
}

// Service 视觉分析服务
type Service struct {
	analyzer service.VisionAnalyzer
}

// NewService 创建视觉分析服务
func NewService(analyzer service.VisionAnalyzer) *Service {
	return &Service{analyzer: analyzer}
}

// Analyze 按模式分发分析请求
// 未知模式在调用模型前即被拒绝
func (s *Service) Analyze(ctx context.Context, req Request) (entity.AnalysisOutcome, error) {
	// 模式按原样精确匹配，与 HTTP 层的判定一致
	mode := entity.AnalysisMode(req.Mode)
	if !mode.Valid() {
		metrics.AnalysisTotal.WithLabelValues("invalid", string(apperrors.CodeInvalidMode)).Inc()
		return entity.AnalysisOutcome{}, apperrors.ErrInvalidMode.WithDetail(fmt.Sprintf("mode %q", req.Mode))
	}

	ctx, span := tracer.Start(ctx, "analysis.Service.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.mode", string(mode)),
		attribute.Int("analysis.images", len(req.Images)),
	)

	outcome, err := s.dispatch(ctx, mode, req)
	if err != nil {
		appErr := apperrors.Classify(err, "Analysis failed")
		tracer.RecordError(span, appErr)
		metrics.AnalysisTotal.WithLabelValues(string(mode), string(appErr.Code)).Inc()
		logger.Error(ctx, "analysis failed", appErr, "mode", mode, "code", appErr.Code)
		return entity.AnalysisOutcome{}, appErr
	}

	metrics.AnalysisTotal.WithLabelValues(string(mode), "success").Inc()
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, mode entity.AnalysisMode, req Request) (entity.AnalysisOutcome, error) {
	switch mode {
	case entity.AnalysisModeTitles:
		if len(req.Images) == 0 {
			return entity.AnalysisOutcome{}, apperrors.ErrInvalidParam.WithDetail("titles mode requires one image")
		}
		subject := strings.TrimSpace(req.Prompt)
		if subject == "" {
			subject = defaultTitleContext
		}
		text, err := s.call(ctx, mode, fmt.Sprintf(titlesPrompt, subject), req.Images[:1])
		if err != nil {
			return entity.AnalysisOutcome{}, err
		}
		titles, err := ParseTitles(text)
		if err != nil {
			logger.Warn(ctx, "malformed titles response", "reason", err.Error())
			return entity.AnalysisOutcome{}, apperrors.ErrMalformedAnalysis.WithError(err)
		}
		return entity.TitlesOutcome(titles), nil

	default:
		if len(req.Images) != 2 {
			return entity.AnalysisOutcome{}, apperrors.ErrInvalidParam.WithDetail(
				fmt.Sprintf("ctr mode requires exactly two images, got %d", len(req.Images)))
		}
		text, err := s.call(ctx, mode, ctrPrompt, req.Images)
		if err != nil {
			return entity.AnalysisOutcome{}, err
		}
		verdict, err := ParseVerdict(text)
		if err != nil {
			logger.Warn(ctx, "malformed ctr response", "reason", err.Error())
			return entity.AnalysisOutcome{}, apperrors.ErrMalformedAnalysis.WithError(err)
		}
		return entity.CTROutcome(verdict), nil
	}
}

func (s *Service) call(ctx context.Context, mode entity.AnalysisMode, prompt string, images []entity.GeneratedImage) (string, error) {
	start := time.Now()
	text, err := s.analyzer.Analyze(ctx, prompt, images)
	logger.Debug(ctx, "analysis call returned",
		"mode", mode,
		"duration_ms", time.Since(start).Milliseconds(),
		"chars", len(text),
	)
	return text, err
}
