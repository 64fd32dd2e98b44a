//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"thumbnail-ai-api/internal/application/analysis"
	"thumbnail-ai-api/internal/config"
	"thumbnail-ai-api/internal/domain/service"
	"thumbnail-ai-api/internal/infrastructure/gemini"
	"thumbnail-ai-api/internal/infrastructure/persistence/postgres"
	"thumbnail-ai-api/internal/interfaces/http/handler"
	"thumbnail-ai-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StoreSet,
		ModelSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeMigrator 仅初始化数据库历史记录仓储（用于 bootstrap）
func InitializeMigrator(ctx context.Context, cfg *config.Config) (*postgres.HistoryRepository, func(), error) {
	wire.Build(
		ProvideRequiredPostgresClient,
		ProvidePostgresHistoryRepository,
	)
	return nil, nil, nil
}

// StoreSet 存储相关依赖
var StoreSet = wire.NewSet(
	ProvideRedisClient,
	ProvidePostgresClient,
	ProvideRateLimiter,
	ProvideHistoryRepository,
	ProvideHistoryService,
)

// ModelSet 模型客户端与领域服务
var ModelSet = wire.NewSet(
	ProvideGeminiClient,
	wire.Bind(new(service.ImageGenerator), new(*gemini.Client)),
	wire.Bind(new(service.VisionAnalyzer), new(*gemini.Client)),
	ProvideOrchestrator,
	ProvideRegenerator,
	analysis.NewService,
)

// RouterSet 处理器与路由
var RouterSet = wire.NewSet(
	ProvideThumbnailHandler,
	ProvideAnalysisHandler,
	handler.NewHistoryHandler,
	ProvideHealthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
