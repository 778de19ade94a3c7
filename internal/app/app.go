package app

import (
	"context"
	"fmt"

	"relay_bot/internal/config"
	"relay_bot/internal/logger"
	"relay_bot/internal/mongo"
	"relay_bot/internal/telegram"
)

// App 应用服务容器
// 负责管理所有服务的生命周期（初始化、运行、关闭）
type App struct {
	MongoDB *mongo.Client
	Bot     *telegram.Bot
}

// New 初始化应用及其所有服务
// 按顺序初始化，任何服务初始化失败都会清理并返回错误
func New(cfg *config.Config) (*App, error) {
	app := &App{}

	mongoClient, err := mongo.InitFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init MongoDB failed: %w", err)
	}
	app.MongoDB = mongoClient
	logger.L().Info("MongoDB initialized successfully")

	telegramBot, err := telegram.InitFromConfig(cfg, mongoClient.Database())
	if err != nil {
		_ = app.MongoDB.Close(context.Background())
		return nil, fmt.Errorf("init Telegram bot failed: %w", err)
	}
	app.Bot = telegramBot

	return app, nil
}

// Run 运行 Bot 直到 ctx 取消
func (a *App) Run(ctx context.Context) error {
	return a.Bot.Start(ctx)
}

// Close 优雅关闭所有服务
// 应该在应用退出时调用，确保资源正确释放
func (a *App) Close(ctx context.Context) error {
	if a.Bot != nil {
		if err := a.Bot.Stop(ctx); err != nil {
			logger.L().Errorf("Failed to stop bot: %v", err)
		}
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			return fmt.Errorf("close MongoDB failed: %w", err)
		}
	}
	return nil
}
