package dto

import (
	"fmt"

	"thumbnail-ai-api/internal/domain/entity"
	apperrors "thumbnail-ai-api/pkg/errors"
)

// GenerateRequest 批量生成请求
// Count 接受数字或数字字符串，缺省与非法值在领域层归一化
type GenerateRequest struct {
	Prompt      string   `json:"prompt" binding:"required,max=1000"`
	Images      []string `json:"images" binding:"max=8"`
	Count       any      `json:"count"`
	AspectRatio string   `json:"aspectRatio"`
}

// ToGenerationRequest 解码参考图并构建领域请求
func (r *GenerateRequest) ToGenerationRequest() (entity.GenerationRequest, error) {
	refs, err := DecodeImages(r.Images)
	if err != nil {
		return entity.GenerationRequest{}, err
	}
	return entity.NewGenerationRequest(r.Prompt, refs, r.Count, r.AspectRatio), nil
}

// GenerateResponse 批量生成响应
type GenerateResponse struct {
	Images    []entity.GeneratedImage `json:"images"`
	HistoryID string                  `json:"historyId,omitempty"`
}

// RegenerateRequest 单图重绘请求
type RegenerateRequest struct {
	Prompt      string                  `json:"prompt" binding:"max=1000"`
	Images      []string                `json:"images" binding:"max=8"`
	AspectRatio string                  `json:"aspectRatio"`
	Index       int                     `json:"index" binding:"gte=0"`
	Current     []entity.GeneratedImage `json:"current" binding:"required,min=1,max=4"`
	HistoryID   string                  `json:"historyId" binding:"max=64"`
}

// RegenerateResponse 单图重绘响应
type RegenerateResponse struct {
	Images []entity.GeneratedImage `json:"images"`
}

// DecodeImages 解码 data URL / base64 列表，错误信息带出位置
func DecodeImages(raw []string) ([]entity.GeneratedImage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]entity.GeneratedImage, 0, len(raw))
	for i, s := range raw {
		img, err := entity.DecodeImage(s)
		if err != nil {
			return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("images[%d]: %v", i, err))
		}
		out = append(out, img)
	}
	return out, nil
}
