package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
)

// HistoryRepository 历史记录仓储实现
type HistoryRepository struct {
	client   *Client
	tx       *TxManager
	capacity int
}

// NewHistoryRepository 创建历史记录仓储
func NewHistoryRepository(client *Client, capacity int) *HistoryRepository {
	if capacity < 1 {
		capacity = entity.DefaultHistoryCapacity
	}
	return &HistoryRepository{client: client, tx: NewTxManager(client), capacity: capacity}
}

// AutoMigrate 创建或更新历史记录表
func (r *HistoryRepository) AutoMigrate(ctx context.Context) error {
	return r.client.db.WithContext(ctx).AutoMigrate(&entity.HistoryEntry{})
}

// Append 插入记录并删除超出容量的旧记录
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	ctx, span := tracer.Start(ctx, "postgres.HistoryRepository.Append")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := getDB(ctx, r.client.db)
		if err := db.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create history entry: %w", err)
		}
		keep := db.Model(&entity.HistoryEntry{}).
			Select("id").
			Order("created_at DESC").
			Limit(r.capacity)
		if err := db.Where("id NOT IN (?)", keep).Delete(&entity.HistoryEntry{}).Error; err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// List 按时间倒序返回记录
func (r *HistoryRepository) List(ctx context.Context) ([]*entity.HistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "postgres.HistoryRepository.List")
	defer span.End()

	var entries []*entity.HistoryEntry
	if err := getDB(ctx, r.client.db).
		Order("created_at DESC").
		Limit(r.capacity).
		Find(&entries).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// Get 根据 ID 获取记录
func (r *HistoryRepository) Get(ctx context.Context, id string) (*entity.HistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "postgres.HistoryRepository.Get")
	defer span.End()

	var entry entity.HistoryEntry
	if err := getDB(ctx, r.client.db).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrHistoryNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return &entry, nil
}

// ReplaceImage 行锁内替换单张图片
func (r *HistoryRepository) ReplaceImage(ctx context.Context, id string, index int, img entity.GeneratedImage) error {
	ctx, span := tracer.Start(ctx, "postgres.HistoryRepository.ReplaceImage")
	defer span.End()

	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		db := getDB(ctx, r.client.db)
		var entry entity.HistoryEntry
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrHistoryNotFound
			}
			span.RecordError(err)
			return fmt.Errorf("failed to lock history entry: %w", err)
		}
		if !entry.ReplaceImage(index, img) {
			return repository.ErrImageIndexOutOfRange
		}
		if err := db.Model(&entry).Select("Images").Updates(&entry).Error; err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to update history entry: %w", err)
		}
		return nil
	})
}

// Clear 删除全部记录
func (r *HistoryRepository) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.HistoryRepository.Clear")
	defer span.End()

	err := getDB(ctx, r.client.db).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&entity.HistoryEntry{}).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
