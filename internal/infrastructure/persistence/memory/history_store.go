// Package memory 提供进程内的历史记录存储
package memory

import (
	"context"
	"sync"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
)

// HistoryStore 内存历史记录存储
type HistoryStore struct {
	mu       sync.RWMutex
	entries  []*entity.HistoryEntry
	capacity int
}

// NewHistoryStore 创建内存存储
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity < 1 {
		capacity = entity.DefaultHistoryCapacity
	}
	return &HistoryStore{capacity: capacity}
}

// Append 插入到队首并截断
func (s *HistoryStore) Append(_ context.Context, entry *entity.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entity.PrependCapped(s.entries, entry.Clone(), s.capacity)
	return nil
}

// List 返回副本，调用方修改不影响存储
func (s *HistoryStore) List(_ context.Context) ([]*entity.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

// Get 根据 ID 获取记录
func (s *HistoryStore) Get(_ context.Context, id string) (*entity.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return nil, repository.ErrHistoryNotFound
}

// ReplaceImage 替换记录中的单张图片
func (s *HistoryStore) ReplaceImage(_ context.Context, id string, index int, img entity.GeneratedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID != id {
			continue
		}
		next := e.Clone()
		if !next.ReplaceImage(index, img) {
			return repository.ErrImageIndexOutOfRange
		}
		s.entries[i] = next
		return nil
	}
	return repository.ErrHistoryNotFound
}

// Clear 清空
func (s *HistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return nil
}
