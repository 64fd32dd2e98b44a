package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
	"thumbnail-ai-api/pkg/logger"
)

// maxTxRetries WATCH 冲突时的最大重试次数
const maxTxRetries = 5

// DefaultHistoryKey 历史记录默认键名
const DefaultHistoryKey = "thumbnail_history"

// HistoryStore Redis 历史记录存储
// 整个列表以 JSON 数组保存在单个键中，写操作通过 WATCH 乐观事务完成
type HistoryStore struct {
	client   *Client
	key      string
	capacity int
	reads    singleflight.Group
}

// NewHistoryStore 创建 Redis 历史记录存储
func NewHistoryStore(client *Client, key string, capacity int) *HistoryStore {
	if key == "" {
		key = DefaultHistoryKey
	}
	if capacity < 1 {
		capacity = entity.DefaultHistoryCapacity
	}
	return &HistoryStore{client: client, key: key, capacity: capacity}
}

// Append 插入到队首并截断
func (s *HistoryStore) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	ctx, span := tracer.Start(ctx, "redis.HistoryStore.Append",
		trace.WithAttributes(attribute.String("redis.key", s.key)))
	defer span.End()

	err := s.update(ctx, func(entries []*entity.HistoryEntry) ([]*entity.HistoryEntry, error) {
		return entity.PrependCapped(entries, entry, s.capacity), nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// List 返回全部记录
func (s *HistoryStore) List(ctx context.Context) ([]*entity.HistoryEntry, error) {
	ctx, span := tracer.Start(ctx, "redis.HistoryStore.List",
		trace.WithAttributes(attribute.String("redis.key", s.key)))
	defer span.End()

	// 并发读取合并为一次 GET，各调用方独立解码，互不共享记录指针
	// 共享的 GET 不随首个调用方取消，每个调用方只受自己的 ctx 约束
	readCtx := context.WithoutCancel(ctx)
	ch := s.reads.DoChan(s.key, func() (any, error) {
		raw, err := s.client.rdb.Get(readCtx, s.key).Result()
		if IsNil(err) {
			return "", nil
		}
		return raw, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	}
	span.SetAttributes(attribute.Bool("redis.shared", res.Shared))
	if res.Err != nil {
		span.RecordError(res.Err)
		return nil, fmt.Errorf("failed to load history: %w", res.Err)
	}
	raw := res.Val.(string)
	if raw == "" {
		return nil, nil
	}
	return s.decode(ctx, raw), nil
}

// Get 根据 ID 获取记录
func (s *HistoryStore) Get(ctx context.Context, id string) (*entity.HistoryEntry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrHistoryNotFound
}

// ReplaceImage 替换记录中的单张图片
func (s *HistoryStore) ReplaceImage(ctx context.Context, id string, index int, img entity.GeneratedImage) error {
	ctx, span := tracer.Start(ctx, "redis.HistoryStore.ReplaceImage",
		trace.WithAttributes(attribute.String("redis.key", s.key)))
	defer span.End()

	return s.update(ctx, func(entries []*entity.HistoryEntry) ([]*entity.HistoryEntry, error) {
		for _, e := range entries {
			if e.ID != id {
				continue
			}
			if !e.ReplaceImage(index, img) {
				return nil, repository.ErrImageIndexOutOfRange
			}
			return entries, nil
		}
		return nil, repository.ErrHistoryNotFound
	})
}

// Clear 删除键
func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key)
}

// update 在 WATCH 事务中读-改-写整个列表
func (s *HistoryStore) update(ctx context.Context, fn func([]*entity.HistoryEntry) ([]*entity.HistoryEntry, error)) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, s.key).Result()
		if err != nil && !IsNil(err) {
			return err
		}
		var entries []*entity.HistoryEntry
		if raw != "" {
			entries = s.decode(ctx, raw)
		}

		next, err := fn(entries)
		if err != nil {
			return err
		}
		b, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, b, 0)
			return nil
		})
		return err
	}

	return s.client.WatchRetry(ctx, maxTxRetries, txf, s.key)
}

func (s *HistoryStore) decode(ctx context.Context, raw string) []*entity.HistoryEntry {
	entries, dropped, err := entity.DecodeHistory([]byte(raw))
	if err != nil {
		logger.Warn(ctx, "malformed history in redis, treating as empty", "key", s.key, "error", err.Error())
		return nil
	}
	if dropped > 0 {
		logger.Warn(ctx, "dropped null entries from redis history", "key", s.key, "dropped", dropped)
	}
	return entries
}
