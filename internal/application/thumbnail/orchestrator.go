// Package thumbnail 提供缩略图批量生成、单图重绘与当前工作区视图
package thumbnail

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"thumbnail-ai-api/internal/domain/entity"
	"thumbnail-ai-api/internal/domain/service"
	apperrors "thumbnail-ai-api/pkg/errors"
	"thumbnail-ai-api/pkg/logger"
	"thumbnail-ai-api/pkg/metrics"
	"thumbnail-ai-api/pkg/tracer"
)

// Mode 批量调用策略
type Mode string

const (
	// ModeSequential 逐个调用，第 2..N 次调用前等待固定间隔，配额友好
	ModeSequential Mode = "sequential"
	// ModeParallel 同时发起全部调用，延迟低但容易触发每分钟配额
	ModeParallel Mode = "parallel"
)

// DefaultSequentialDelay 顺序模式默认间隔
const DefaultSequentialDelay = 8 * time.Second

const styleDirective = "Create a YouTube thumbnail in %s, photorealistic, high quality, vibrant colors, eye-catching design, bold composition, professional photography style."

// BuildPrompt 拼接用户提示词与按比例参数化的风格指令
func BuildPrompt(prompt string, ratio entity.AspectRatio) string {
	return prompt + ". " + fmt.Sprintf(styleDirective, ratio.Description())
}

// Options 编排器配置
type Options struct {
	Mode  Mode
	Delay time.Duration
}

// Orchestrator 批量生成编排器
type Orchestrator struct {
	generator service.ImageGenerator
	mode      Mode
	delay     time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator 创建编排器
func NewOrchestrator(generator service.ImageGenerator, opts Options) *Orchestrator {
	mode := opts.Mode
	if mode != ModeParallel {
		mode = ModeSequential
	}
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	return &Orchestrator{
		generator: generator,
		mode:      mode,
		delay:     delay,
		sleep:     sleepContext,
	}
}

// Mode 当前策略
func (o *Orchestrator) Mode() Mode {
	return o.mode
}

// Generate 执行一次批量生成
// 任一调用失败则整批失败，不返回部分结果；错误已归类为 AppError
func (o *Orchestrator) Generate(ctx context.Context, req entity.GenerationRequest) ([]entity.GeneratedImage, error) {
	count := entity.ClampCount(req.Count)
	ratio := entity.ParseAspectRatio(string(req.AspectRatio))
	prompt := BuildPrompt(req.Prompt, ratio)

	ctx, span := tracer.Start(ctx, "thumbnail.Orchestrator.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("generation.mode", string(o.mode)),
		attribute.Int("generation.count", count),
		attribute.Int("generation.references", len(req.ReferenceImages)),
		attribute.String("generation.aspect_ratio", string(ratio)),
	)

	start := time.Now()
	var (
		images []entity.GeneratedImage
		err    error
	)
	if o.mode == ModeParallel {
		images, err = o.runParallel(ctx, prompt, req.ReferenceImages, count)
	} else {
		images, err = o.runSequential(ctx, prompt, req.ReferenceImages, count)
	}
	if err == nil && len(images) == 0 {
		err = apperrors.ErrEmptyGeneration
	}
	metrics.GenerationDuration.WithLabelValues(string(o.mode)).Observe(time.Since(start).Seconds())

	if err != nil {
		appErr := apperrors.Classify(err, "Failed to generate thumbnail")
		tracer.RecordError(span, appErr)
		metrics.GenerationTotal.WithLabelValues(string(o.mode), string(appErr.Code)).Inc()
		logger.Error(ctx, "thumbnail batch failed", appErr,
			"mode", o.mode,
			"count", count,
			"code", appErr.Code,
		)
		return nil, appErr
	}

	metrics.GenerationTotal.WithLabelValues(string(o.mode), "success").Inc()
	metrics.GeneratedImages.Add(float64(len(images)))
	logger.Info(ctx, "thumbnail batch completed",
		"mode", o.mode,
		"count", count,
		"images", len(images),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return images, nil
}

func (o *Orchestrator) runSequential(ctx context.Context, prompt string, refs []entity.GeneratedImage, count int) ([]entity.GeneratedImage, error) {
	var out []entity.GeneratedImage
	for i := 0; i < count; i++ {
		if i > 0 {
			if err := o.sleep(ctx, o.delay); err != nil {
				return nil, err
			}
		}
		images, err := o.call(ctx, prompt, refs, i)
		if err != nil {
			return nil, err
		}
		out = append(out, images...)
	}
	return out, nil
}

func (o *Orchestrator) runParallel(ctx context.Context, prompt string, refs []entity.GeneratedImage, count int) ([]entity.GeneratedImage, error) {
	slots := make([][]entity.GeneratedImage, count)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			images, err := o.call(gctx, prompt, refs, i)
			if err != nil {
				return err
			}
			slots[i] = images
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 按发起顺序拼接，而不是完成顺序
	var out []entity.GeneratedImage
	for _, images := range slots {
		out = append(out, images...)
	}
	return out, nil
}

// call 发起单次调用，丢弃非 image/* 产物
func (o *Orchestrator) call(ctx context.Context, prompt string, refs []entity.GeneratedImage, seq int) ([]entity.GeneratedImage, error) {
	ctx, span := tracer.Start(ctx, "thumbnail.Orchestrator.call")
	defer span.End()
	span.SetAttributes(attribute.Int("generation.seq", seq))
	ctx = context.WithValue(ctx, callSeqKey{}, seq)

	parts, err := o.generator.Generate(ctx, prompt, refs)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	images := make([]entity.GeneratedImage, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			images = append(images, p)
		}
	}
	logger.Debug(ctx, "thumbnail call returned",
		"seq", seq,
		"parts", len(parts),
		"images", len(images),
	)
	return images, nil
}

type callSeqKey struct{}

// CallSeq 返回当前调用在批次中的发起序号（从 0 开始）
func CallSeq(ctx context.Context) (int, bool) {
	seq, ok := ctx.Value(callSeqKey{}).(int)
	return seq, ok
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
