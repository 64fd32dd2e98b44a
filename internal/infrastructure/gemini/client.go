// Package gemini 提供基于 Gemini API 的图像生成与视觉分析实现
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"

	"thumbnail-ai-api/internal/config"
	"thumbnail-ai-api/internal/domain/entity"
	apperrors "thumbnail-ai-api/pkg/errors"
	"thumbnail-ai-api/pkg/logger"
	"thumbnail-ai-api/pkg/metrics"
	"thumbnail-ai-api/pkg/tracer"
)

// DefaultModel 默认使用的图像模型
const DefaultModel = "gemini-3-pro-image-preview"

const (
	operationGenerate = "generate"
	operationAnalyze  = "analyze"
)

// Client Gemini 客户端，同时实现 ImageGenerator 与 VisionAnalyzer
type Client struct {
	genai         *genai.Client
	imageModel    string
	analysisModel string
}

// NewClient 创建 Gemini 客户端
func NewClient(ctx context.Context, cfg *config.LLMConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: NewHTTPClient(HTTPOptions{
			PreferIPv4: cfg.PreferIPv4,
			Timeout:    cfg.HTTPTimeout,
		}),
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	}
	gc, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = DefaultModel
	}
	analysisModel := cfg.AnalysisModel
	if analysisModel == "" {
		analysisModel = imageModel
	}

	return &Client{
		genai:         gc,
		imageModel:    imageModel,
		analysisModel: analysisModel,
	}, nil
}

// Generate 调用图像模型，返回响应中的全部内联产物（含媒体类型）
func (c *Client) Generate(ctx context.Context, prompt string, refs []entity.GeneratedImage) ([]entity.GeneratedImage, error) {
	resp, err := c.call(ctx, operationGenerate, c.imageModel, prompt, refs, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, err
	}

	var out []entity.GeneratedImage
	for _, part := range responseParts(resp) {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		out = append(out, entity.GeneratedImage{
			Data:      part.InlineData.Data,
			MediaType: part.InlineData.MIMEType,
		})
	}
	return out, nil
}

// Analyze 调用视觉模型，返回拼接后的文本
func (c *Client) Analyze(ctx context.Context, prompt string, images []entity.GeneratedImage) (string, error) {
	resp, err := c.call(ctx, operationAnalyze, c.analysisModel, prompt, images, nil)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, part := range responseParts(resp) {
		if part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// call 发送一次 generateContent 请求：文本在前，图片按顺序跟随
func (c *Client) call(ctx context.Context, operation, model, prompt string, images []entity.GeneratedImage, gcc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	ctx, span := tracer.Start(ctx, "gemini.GenerateContent")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.operation", operation),
		attribute.String("llm.model", model),
		attribute.Int("llm.images", len(images)),
	)

	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MediaType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, model, contents, gcc)
	elapsed := time.Since(start)
	metrics.UpstreamCallDuration.WithLabelValues(operation, model).Observe(elapsed.Seconds())

	if err != nil {
		err = toUpstreamError(err)
		tracer.RecordError(span, err)
		metrics.UpstreamCallTotal.WithLabelValues(operation, model, "error").Inc()
		logger.Warn(ctx, "gemini call failed",
			"operation", operation,
			"model", model,
			"duration_ms", elapsed.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	metrics.UpstreamCallTotal.WithLabelValues(operation, model, "success").Inc()
	logger.Debug(ctx, "gemini call completed",
		"operation", operation,
		"model", model,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// responseParts 取第一个候选的全部 part
func responseParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return nil
	}
	return cand.Content.Parts
}

// toUpstreamError 将 genai.APIError 转换为带状态码的 UpstreamError
func toUpstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &apperrors.UpstreamError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &apperrors.UpstreamError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return err
}
