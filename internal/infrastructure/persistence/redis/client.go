// Package redis 提供 Redis 历史记录存储与限流实现
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"thumbnail-ai-api/internal/config"
)

var tracer = otel.Tracer("redis")

// ErrTxConflict 乐观事务重试耗尽
var ErrTxConflict = errors.New("redis transaction conflicted")

// Client Redis 客户端
type Client struct {
	rdb *redis.Client
}

// NewClient 创建 Redis 客户端并验证连接
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		ClientName:   "thumbnail-ai-api",
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis %s: %w", rdb.Options().Addr, err)
	}

	return &Client{rdb: rdb}, nil
}

// NewClientFromRedis 包装已有连接（测试中接入 miniredis 等）
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Redis 获取底层 Redis 客户端
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HealthCheck 就绪检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "redis.HealthCheck")
	defer span.End()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// WatchRetry 在 WATCH 乐观事务中执行 fn，键被并发修改时重试
func (c *Client) WatchRetry(ctx context.Context, maxRetries int, fn func(tx *redis.Tx) error, keys ...string) error {
	ctx, span := tracer.Start(ctx, "redis.WatchRetry",
		trace.WithAttributes(attribute.StringSlice("redis.keys", keys)))
	defer span.End()

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := c.rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			span.SetAttributes(attribute.Int("redis.tx_attempts", attempt))
			continue
		}
		if err != nil {
			span.RecordError(err)
		}
		return err
	}
	span.RecordError(ErrTxConflict)
	return fmt.Errorf("%w after %d attempts", ErrTxConflict, maxRetries)
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) error {
	ctx, span := tracer.Start(ctx, "redis.Del",
		trace.WithAttributes(attribute.Int("redis.key_count", len(keys))))
	defer span.End()

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// IsNil 检查是否为 redis.Nil 错误
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
