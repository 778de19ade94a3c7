package repository

import (
	"context"
	"time"

	"relay_bot/internal/telegram/models"
)

// TaskRepository 转发任务数据访问接口
// 所有写操作均为单字段的 last-write-wins，不提供跨字段事务保证。
type TaskRepository interface {
	// Create 创建任务，返回 store 分配的任务 ID
	Create(ctx context.Context, task *models.ForwardTask) (string, error)

	// GetByID 根据任务 ID 获取任务，不存在时返回 ErrTaskNotFound
	GetByID(ctx context.Context, id string) (*models.ForwardTask, error)

	// ListByOwner 列出某用户的全部任务
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.ForwardTask, error)

	// ListActive 列出所有活跃任务，mode 为空时不过滤模式
	ListActive(ctx context.Context, mode string) ([]*models.ForwardTask, error)

	// UpdateCursor 更新区间回放任务的游标
	UpdateCursor(ctx context.Context, id string, newCurrentID int64) error

	// UpdateLastProcessed 更新实时任务最近转发的消息 ID
	UpdateLastProcessed(ctx context.Context, id string, messageID int64) error

	// SetActive 更新任务的激活状态
	SetActive(ctx context.Context, id string, active bool) error

	// UpdateCaption 更新自定义文案
	UpdateCaption(ctx context.Context, id string, caption string) error

	// SetRemoveCaption 更新是否丢弃原始文案
	SetRemoveCaption(ctx context.Context, id string, remove bool) error

	// Delete 删除任务
	Delete(ctx context.Context, id string) error

	// EnsureIndexes 确保索引存在
	EnsureIndexes(ctx context.Context) error
}

// UserRepository 用户数据访问接口
type UserRepository interface {
	// CreateOrUpdate 创建或更新用户
	CreateOrUpdate(ctx context.Context, user *models.User) error

	// GetByTelegramID 根据 Telegram ID 获取用户
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)

	// UpdateLastActive 更新用户最后活跃时间
	UpdateLastActive(ctx context.Context, telegramID int64) error

	// SetBanned 更新用户封禁状态，until 为空表示永久封禁或解除封禁
	SetBanned(ctx context.Context, telegramID int64, banned bool, until *time.Time) error

	// EnsureIndexes 确保索引存在
	EnsureIndexes(ctx context.Context) error
}
