package thumbnail

import (
	"thumbnail-ai-api/internal/domain/entity"
)

// Workspace 当前生成视图（恢复历史记录后的状态）
type Workspace struct {
	HistoryID   string                  `json:"historyId"`
	Prompt      string                  `json:"prompt"`
	Images      []entity.GeneratedImage `json:"images"`
	AspectRatio entity.AspectRatio      `json:"aspectRatio"`
	Count       int                     `json:"count"`
}

// WorkspaceFromEntry 由历史记录构建工作区，数量取图片数并归一化到 [1,4]
func WorkspaceFromEntry(e *entity.HistoryEntry) Workspace {
	images := entity.CloneImages(e.Images)
	if images == nil {
		images = []entity.GeneratedImage{}
	}
	return Workspace{
		HistoryID:   e.ID,
		Prompt:      e.Prompt,
		Images:      images,
		AspectRatio: entity.ParseAspectRatio(string(e.AspectRatio)),
		Count:       entity.ClampCount(len(images)),
	}
}
