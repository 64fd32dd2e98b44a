// Package history 提供生成历史记录的应用服务
package history

import (
	"context"
	"errors"
	"strings"

	"thumbnail-ai-api/internal/application/thumbnail"
	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
	apperrors "thumbnail-ai-api/pkg/errors"
	"thumbnail-ai-api/pkg/logger"
	"thumbnail-ai-api/pkg/metrics"
)

// Service 历史记录服务
type Service struct {
	repo    repository.HistoryRepository
	backend string
}

// NewService 创建历史记录服务，backend 仅用于指标标签
func NewService(repo repository.HistoryRepository, backend string) *Service {
	return &Service{repo: repo, backend: backend}
}

// Record 记录一次成功的生成，返回新记录
func (s *Service) Record(ctx context.Context, prompt string, images []entity.GeneratedImage, ratio entity.AspectRatio) (*entity.HistoryEntry, error) {
	entry := entity.NewHistoryEntry(prompt, images, ratio)
	if err := s.repo.Append(ctx, entry); err != nil {
		metrics.HistoryAppendTotal.WithLabelValues(s.backend, "error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to save history")
	}
	metrics.HistoryAppendTotal.WithLabelValues(s.backend, "success").Inc()

	logger.Debug(logger.WithContext(ctx, logger.HistoryIDKey, entry.ID), "history entry recorded", "images", len(images))
	return entry, nil
}

// List 返回全部记录，最新在前
func (s *Service) List(ctx context.Context) ([]*entity.HistoryEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to load history")
	}
	if entries == nil {
		entries = []*entity.HistoryEntry{}
	}
	return entries, nil
}

// Get 获取单条记录
func (s *Service) Get(ctx context.Context, id string) (*entity.HistoryEntry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("history id is required")
	}
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrHistoryNotFound) {
			return nil, apperrors.ErrNotFound.WithDetail("history entry " + id)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to load history")
	}
	return entry, nil
}

// Restore 将历史记录恢复为当前工作区，不触发任何模型调用
func (s *Service) Restore(ctx context.Context, id string) (thumbnail.Workspace, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return thumbnail.Workspace{}, err
	}
	return thumbnail.WorkspaceFromEntry(entry), nil
}

// PatchImage 回写单图重绘结果，仓储错误原样返回供调用方判断
func (s *Service) PatchImage(ctx context.Context, id string, index int, img entity.GeneratedImage) error {
	return s.repo.ReplaceImage(ctx, id, index, img)
}

// Clear 清空历史
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to clear history")
	}
	logger.Info(ctx, "history cleared")
	return nil
}
