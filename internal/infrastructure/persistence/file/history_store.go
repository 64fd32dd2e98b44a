// Package file 提供基于单个 JSON 文件的历史记录存储
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
	"thumbnail-ai-api/pkg/logger"
)

// HistoryStore 文件历史记录存储
// 整个列表以 JSON 数组保存在一个文件中，文件缺失或损坏时按空列表处理
type HistoryStore struct {
	mu       sync.Mutex
	path     string
	capacity int
}

// NewHistoryStore 创建文件存储，必要时创建目录
func NewHistoryStore(path string, capacity int) (*HistoryStore, error) {
	if capacity < 1 {
		capacity = entity.DefaultHistoryCapacity
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}
	return &HistoryStore{path: path, capacity: capacity}, nil
}

// Append 插入到队首并截断
func (s *HistoryStore) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load(ctx)
	return s.save(entity.PrependCapped(entries, entry, s.capacity))
}

// List 返回全部记录
func (s *HistoryStore) List(ctx context.Context) ([]*entity.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx), nil
}

// Get 根据 ID 获取记录
func (s *HistoryStore) Get(ctx context.Context, id string) (*entity.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.load(ctx) {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrHistoryNotFound
}

// ReplaceImage 替换记录中的单张图片
func (s *HistoryStore) ReplaceImage(ctx context.Context, id string, index int, img entity.GeneratedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load(ctx)
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		if !e.ReplaceImage(index, img) {
			return repository.ErrImageIndexOutOfRange
		}
		return s.save(entries)
	}
	return repository.ErrHistoryNotFound
}

// Clear 删除文件
func (s *HistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove history file: %w", err)
	}
	return nil
}

func (s *HistoryStore) load(ctx context.Context) []*entity.HistoryEntry {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "failed to read history file", "path", s.path, "error", err.Error())
		}
		return nil
	}
	entries, dropped, err := entity.DecodeHistory(b)
	if err != nil {
		logger.Warn(ctx, "malformed history file, treating as empty", "path", s.path, "error", err.Error())
		return nil
	}
	if dropped > 0 {
		logger.Warn(ctx, "dropped null entries from history file", "path", s.path, "dropped", dropped)
	}
	return entries
}

// save 先写临时文件再改名，避免写到一半的文件
func (s *HistoryStore) save(entries []*entity.HistoryEntry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}
