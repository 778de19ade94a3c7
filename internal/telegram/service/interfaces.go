package service

import (
	"context"
	"time"
)

// TelegramUserInfo 从 Telegram Update 提取的用户信息
type TelegramUserInfo struct {
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

// UserService 用户业务逻辑接口
type UserService interface {
	// RegisterOrUpdateUser 注册或更新用户
	RegisterOrUpdateUser(ctx context.Context, info *TelegramUserInfo) error

	// UpdateUserActivity 更新用户最后活跃时间
	UpdateUserActivity(ctx context.Context, telegramID int64) error

	// CheckAdminPermission 检查是否具有管理员权限（Admin 或 Owner）
	CheckAdminPermission(ctx context.Context, telegramID int64) (bool, error)

	// CheckOwnerPermission 检查是否为 Owner
	CheckOwnerPermission(ctx context.Context, telegramID int64) (bool, error)

	// IsBanned 当前是否处于封禁状态；查询失败时按未封禁处理
	IsBanned(ctx context.Context, telegramID int64) bool

	// BanUser 封禁用户，duration 为 0 表示永久
	BanUser(ctx context.Context, targetID, bannedBy int64, duration time.Duration) error

	// UnbanUser 解除封禁
	UnbanUser(ctx context.Context, targetID int64) error
}
