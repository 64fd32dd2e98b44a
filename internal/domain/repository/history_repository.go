// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"errors"

	"thumbnail-ai-api/internal/domain/entity"
)

// ErrHistoryNotFound 历史记录不存在
var ErrHistoryNotFound = errors.New("history entry not found")

// HistoryRepository 生成历史仓储接口
// 列表按最新在前排列，条数不超过实现的容量
type HistoryRepository interface {
	// Append 插入到队首并截断到容量
	Append(ctx context.Context, entry *entity.HistoryEntry) error

	// List 返回全部记录，最新在前
	List(ctx context.Context) ([]*entity.HistoryEntry, error)

	// Get 根据 ID 获取记录，不存在时返回 ErrHistoryNotFound
	Get(ctx context.Context, id string) (*entity.HistoryEntry, error)

	// ReplaceImage 替换记录中指定位置的图片
	// 记录不存在返回 ErrHistoryNotFound，越界返回 ErrImageIndexOutOfRange
	ReplaceImage(ctx context.Context, id string, index int, img entity.GeneratedImage) error

	// Clear 清空全部记录并移除持久化状态
	Clear(ctx context.Context) error
}

// ErrImageIndexOutOfRange 图片下标越界
var ErrImageIndexOutOfRange = errors.New("image index out of range")
