package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/repository"
	apperrors "thumbnail-ai-api/pkg/errors"
	"thumbnail-ai-api/pkg/logger"
)

// HistoryPatcher 重绘成功后回写历史记录
type HistoryPatcher interface {
	PatchImage(ctx context.Context, id string, index int, img entity.GeneratedImage) error
}

// RegenerateRequest 单图重绘请求
type RegenerateRequest struct {
	Prompt          string
	ReferenceImages []entity.GeneratedImage
	AspectRatio     entity.AspectRatio
	Index           int
	Current         []entity.GeneratedImage
	// HistoryID 当前结果集来源的历史记录，可为空
	HistoryID string
}

// Regenerator 单图重绘
type Regenerator struct {
	orchestrator *Orchestrator
	history      HistoryPatcher
	locks        *keyedMutex
}

// NewRegenerator 创建重绘器，history 可为 nil
func NewRegenerator(orchestrator *Orchestrator, history HistoryPatcher) *Regenerator {
	return &Regenerator{
		orchestrator: orchestrator,
		history:      history,
		locks:        newKeyedMutex(),
	}
}

// Regenerate 重新生成 Index 处的图片并返回新的列表
// 失败时 Current 保持不变；同一 (HistoryID, Index) 的写入串行执行
func (r *Regenerator) Regenerate(ctx context.Context, req RegenerateRequest) ([]entity.GeneratedImage, error) {
	if req.Index < 0 || req.Index >= len(req.Current) {
		return nil, apperrors.ErrInvalidParam.WithDetail(
			fmt.Sprintf("index %d out of range [0,%d)", req.Index, len(req.Current)))
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = entity.DefaultRegeneratePrompt
	}

	// 未关联历史记录时 Current 归调用方所有，没有共享的槽位需要串行
	if req.HistoryID != "" {
		unlock := r.locks.Lock(slotKey(req.HistoryID, req.Index))
		defer unlock()
	}

	images, err := r.orchestrator.Generate(ctx, entity.GenerationRequest{
		Prompt:          prompt,
		ReferenceImages: req.ReferenceImages,
		Count:           1,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}

	next := entity.CloneImages(req.Current)
	next[req.Index] = images[0]

	if req.HistoryID != "" && r.history != nil {
		r.patchHistory(ctx, req.HistoryID, req.Index, images[0])
	}
	return next, nil
}

func slotKey(historyID string, index int) string {
	return fmt.Sprintf("%s#%d", historyID, index)
}

// patchHistory 尽力回写，失败只记日志
func (r *Regenerator) patchHistory(ctx context.Context, id string, index int, img entity.GeneratedImage) {
	ctx = logger.WithContext(ctx, logger.HistoryIDKey, id)
	err := r.history.PatchImage(ctx, id, index, img)
	switch {
	case err == nil:
		logger.Debug(ctx, "history entry patched", "index", index)
	case errors.Is(err, repository.ErrHistoryNotFound), errors.Is(err, repository.ErrImageIndexOutOfRange):
		logger.Warn(ctx, "history entry not patched", "index", index, "reason", err.Error())
	default:
		logger.Error(ctx, "failed to patch history entry", err, "index", index)
	}
}

// keyedMutex 按 key 加锁，空闲的 key 会被回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock 获取 key 对应的锁，返回解锁函数
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
