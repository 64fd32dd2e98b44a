// Package main 数据库历史记录表初始化
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"thumbnail-ai-api/internal/config"
	"thumbnail-ai-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(config.WithoutCredentials())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, cleanup, err := wire.InitializeMigrator(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer cleanup()

	if err := repo.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate history table: %v", err)
	}

	log.Printf("history table ready (capacity %d)", cfg.History.Capacity)
}
