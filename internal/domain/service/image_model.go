// Package service 定义领域层依赖的外部能力接口（port）
package service

import (
	"context"

	"thumbnail-ai-api/internal/domain/entity"
)

// ImageGenerator 图像生成模型
// 一次调用返回模型输出的全部产物（含媒体类型），由调用方过滤 image/*
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, refs []entity.GeneratedImage) ([]entity.GeneratedImage, error)
}

// VisionAnalyzer 视觉分析模型，返回模型的原始文本
type VisionAnalyzer interface {
	Analyze(ctx context.Context, prompt string, images []entity.GeneratedImage) (string, error)
}
