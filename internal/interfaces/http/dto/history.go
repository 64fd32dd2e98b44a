package dto

import (
	"thumbnail-ai-api/internal/domain/entity"
)

// HistoryListResponse 历史记录列表响应
type HistoryListResponse struct {
	Entries []*entity.HistoryEntry `json:"entries"`
}
