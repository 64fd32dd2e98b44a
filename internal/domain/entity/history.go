package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryCapacity 历史记录默认保留条数
const DefaultHistoryCapacity = 20

// HistoryEntry 一次成功生成的历史记录
type HistoryEntry struct {
	ID          string           `gorm:"primaryKey;type:varchar(64)"`
	Prompt      string           `gorm:"type:text"`
	Images      []GeneratedImage `gorm:"serializer:json;type:jsonb"`
	AspectRatio AspectRatio      `gorm:"type:varchar(8)"`
	CreatedAt   time.Time        `gorm:"index"`
}

// TableName 表名
func (HistoryEntry) TableName() string {
	return "thumbnail_history"
}

// NewHistoryEntry 创建历史记录，ID 与时间戳在此生成
func NewHistoryEntry(prompt string, images []GeneratedImage, ratio AspectRatio) *HistoryEntry {
	return &HistoryEntry{
		ID:          uuid.NewString(),
		Prompt:      prompt,
		Images:      CloneImages(images),
		AspectRatio: ratio,
		CreatedAt:   time.Now(),
	}
}

// ReplaceImage 替换指定位置的图片，越界返回 false
func (e *HistoryEntry) ReplaceImage(index int, img GeneratedImage) bool {
	if index < 0 || index >= len(e.Images) {
		return false
	}
	images := CloneImages(e.Images)
	images[index] = img
	e.Images = images
	return true
}

// Clone 深拷贝到图片列表层级
func (e *HistoryEntry) Clone() *HistoryEntry {
	cp := *e
	cp.Images = CloneImages(e.Images)
	return &cp
}

type historyEntryJSON struct {
	ID          string           `json:"id"`
	Prompt      string           `json:"prompt"`
	Images      []GeneratedImage `json:"images"`
	AspectRatio AspectRatio      `json:"aspectRatio"`
	Timestamp   int64            `json:"timestamp"`
}

// MarshalJSON 时间戳以毫秒输出
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	images := e.Images
	if images == nil {
		images = []GeneratedImage{}
	}
	return json.Marshal(historyEntryJSON{
		ID:          e.ID,
		Prompt:      e.Prompt,
		Images:      images,
		AspectRatio: e.AspectRatio,
		Timestamp:   e.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON 与 MarshalJSON 对称
func (e *HistoryEntry) UnmarshalJSON(b []byte) error {
	var raw historyEntryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.ID = raw.ID
	e.Prompt = raw.Prompt
	e.Images = raw.Images
	e.AspectRatio = ParseAspectRatio(string(raw.AspectRatio))
	e.CreatedAt = time.UnixMilli(raw.Timestamp)
	return nil
}

// PrependCapped 将记录插到队首并截断到 capacity 条，不修改入参
func PrependCapped(entries []*HistoryEntry, entry *HistoryEntry, capacity int) []*HistoryEntry {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	n := len(entries) + 1
	if n > capacity {
		n = capacity
	}
	out := make([]*HistoryEntry, 0, n)
	out = append(out, entry)
	for _, e := range entries {
		if len(out) == n {
			break
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// DecodeHistory 解码持久化的历史数组，丢弃其中的 null 元素
// dropped 为被丢弃的元素个数
func DecodeHistory(b []byte) (entries []*HistoryEntry, dropped int, err error) {
	var raw []*HistoryEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, 0, err
	}
	entries = raw[:0]
	for _, e := range raw {
		if e == nil {
			dropped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, dropped, nil
}
