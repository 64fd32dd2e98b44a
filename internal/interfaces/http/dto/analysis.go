package dto

import (
	"thumbnail-ai-api/internal/domain/entity"
)

// AnalyzeRequest 视觉分析请求
type AnalyzeRequest struct {
	Mode   string   `json:"mode"`
	Images []string `json:"images"`
	Prompt string   `json:"prompt" binding:"max=1000"`
}

// TitlesResponse 标题建议响应
type TitlesResponse struct {
	Titles []string `json:"titles"`
}

// CTRResponse 点击率对比响应
type CTRResponse struct {
	Analysis *entity.CTRVerdict `json:"analysis"`
}

// ToAnalyzeResponse 按结果类型选择响应结构
func ToAnalyzeResponse(o entity.AnalysisOutcome) any {
	if o.Kind == entity.AnalysisModeCTR {
		return CTRResponse{Analysis: o.Verdict}
	}
	return TitlesResponse{Titles: o.Titles}
}
