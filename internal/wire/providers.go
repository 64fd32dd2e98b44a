// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"thumbnail-ai-api/internal/application/analysis"
	"thumbnail-ai-api/internal/application/history"
	"thumbnail-ai-api/internal/application/thumbnail"
	"thumbnail-ai-api/internal/config"
	"thumbnail-ai-api/internal/domain/repository"
	"thumbnail-ai-api/internal/domain/service"
	"thumbnail-ai-api/internal/infrastructure/gemini"
	"thumbnail-ai-api/internal/infrastructure/persistence/file"
	"thumbnail-ai-api/internal/infrastructure/persistence/memory"
	"thumbnail-ai-api/internal/infrastructure/persistence/postgres"
	"thumbnail-ai-api/internal/infrastructure/persistence/redis"
	"thumbnail-ai-api/internal/interfaces/http/handler"
	"thumbnail-ai-api/internal/interfaces/http/middleware"
	"thumbnail-ai-api/pkg/logger"
)

// ProvideRedisClient 启用时创建 Redis 客户端，未启用返回 nil
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresClient 仅在历史记录使用 postgres 后端时连接数据库
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	if cfg.History.Backend != config.HistoryBackendPostgres {
		return nil, func() {}, nil
	}
	return ProvideRequiredPostgresClient(cfg)
}

// ProvideRequiredPostgresClient 无条件连接数据库（用于 bootstrap）
func ProvideRequiredPostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvidePostgresHistoryRepository 数据库历史记录仓储
func ProvidePostgresHistoryRepository(cfg *config.Config, client *postgres.Client) *postgres.HistoryRepository {
	return postgres.NewHistoryRepository(client, cfg.History.Capacity)
}

// ProvideRateLimiter Redis 可用时启用限流
func ProvideRateLimiter(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideHistoryRepository 按配置选择历史记录后端
func ProvideHistoryRepository(ctx context.Context, cfg *config.Config, redisClient *redis.Client, pgClient *postgres.Client) (repository.HistoryRepository, error) {
	capacity := cfg.History.Capacity
	var repo repository.HistoryRepository

	switch cfg.History.Backend {
	case config.HistoryBackendMemory, "":
		repo = memory.NewHistoryStore(capacity)
	case config.HistoryBackendFile:
		store, err := file.NewHistoryStore(cfg.History.FilePath, capacity)
		if err != nil {
			return nil, err
		}
		repo = store
	case config.HistoryBackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("history backend redis requires cache.redis.enabled")
		}
		repo = redis.NewHistoryStore(redisClient, cfg.History.RedisKey, capacity)
	case config.HistoryBackendPostgres:
		if pgClient == nil {
			return nil, fmt.Errorf("history backend postgres requires a database connection")
		}
		repo = postgres.NewHistoryRepository(pgClient, capacity)
	default:
		return nil, fmt.Errorf("unknown history backend: %q", cfg.History.Backend)
	}

	logger.Info(ctx, "history store ready", "backend", cfg.History.Backend, "capacity", capacity)
	return repo, nil
}

// ProvideHistoryService 历史记录服务
func ProvideHistoryService(cfg *config.Config, repo repository.HistoryRepository) *history.Service {
	backend := cfg.History.Backend
	if backend == "" {
		backend = config.HistoryBackendMemory
	}
	return history.NewService(repo, backend)
}

// ProvideGeminiClient 模型客户端
func ProvideGeminiClient(ctx context.Context, cfg *config.Config) (*gemini.Client, error) {
	return gemini.NewClient(ctx, &cfg.LLM)
}

// ProvideOrchestrator 批量生成编排器
func ProvideOrchestrator(cfg *config.Config, generator service.ImageGenerator) *thumbnail.Orchestrator {
	return thumbnail.NewOrchestrator(generator, thumbnail.Options{
		Mode:  thumbnail.Mode(cfg.Generation.Mode),
		Delay: cfg.Generation.SequentialDelay,
	})
}

// ProvideRegenerator 单图重绘，成功后回写历史记录
func ProvideRegenerator(orchestrator *thumbnail.Orchestrator, historySvc *history.Service) *thumbnail.Regenerator {
	return thumbnail.NewRegenerator(orchestrator, historySvc)
}

// ProvideThumbnailHandler 生成接口处理器
func ProvideThumbnailHandler(cfg *config.Config, orchestrator *thumbnail.Orchestrator, regenerator *thumbnail.Regenerator, historySvc *history.Service) *handler.ThumbnailHandler {
	return handler.NewThumbnailHandler(orchestrator, regenerator, historySvc, cfg.Generation.RequestTimeout)
}

// ProvideAnalysisHandler 分析接口处理器
func ProvideAnalysisHandler(cfg *config.Config, svc *analysis.Service) *handler.AnalysisHandler {
	return handler.NewAnalysisHandler(svc, cfg.Analysis.RequestTimeout)
}

// ProvideHealthHandler 就绪检查只包含实际连接的依赖
func ProvideHealthHandler(cfg *config.Config, redisClient *redis.Client, pgClient *postgres.Client) *handler.HealthHandler {
	checks := map[string]handler.HealthChecker{}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	if pgClient != nil {
		checks["postgres"] = pgClient
	}
	return handler.NewHealthHandler(cfg.App.Version, checks)
}
