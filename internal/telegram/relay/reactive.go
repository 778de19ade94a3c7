package relay

import (
	"context"
	"fmt"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"

	"github.com/google/uuid"
)

// Reactive 实时转发器
// 源频道每条新消息到达时触发一次；每个匹配任务独立投递，互不影响。
// 本路径不重试：错过的消息即为丢失，只有最新的实时消息会触发转发。
type Reactive struct {
	tasks    repository.TaskRepository
	platform Platform
}

// NewReactive 创建实时转发器
func NewReactive(tasks repository.TaskRepository, platform Platform) *Reactive {
	return &Reactive{
		tasks:    tasks,
		platform: platform,
	}
}

// OnNewPost 处理一条频道新消息
// 单个任务的失败被隔离：记录日志并通知任务属主，其余任务继续处理。
func (r *Reactive) OnNewPost(ctx context.Context, msg *SourceMessage) {
	matching, err := r.matchingTasks(ctx, msg.ChatID)
	if err != nil {
		logger.L().Errorf("Failed to load reactive tasks for channel %d: %v", msg.ChatID, err)
		return
	}
	if len(matching) == 0 {
		return
	}

	runID := uuid.New().String()
	logger.L().Infof("New post %d in channel %d: %d matching tasks, run_id=%s",
		msg.ID, msg.ChatID, len(matching), runID)

	for _, task := range matching {
		r.forwardOne(ctx, task, msg, runID)
	}
}

// matchingTasks 查出监听该源频道的活跃实时任务
func (r *Reactive) matchingTasks(ctx context.Context, sourceChannelID int64) ([]*models.ForwardTask, error) {
	active, err := r.tasks.ListActive(ctx, models.ModeReactive)
	if err != nil {
		return nil, err
	}

	var matching []*models.ForwardTask
	for _, task := range active {
		if task.SourceChannelID == sourceChannelID {
			matching = append(matching, task)
		}
	}
	return matching, nil
}

// forwardOne 针对单个任务投递一次
func (r *Reactive) forwardOne(ctx context.Context, task *models.ForwardTask, msg *SourceMessage, runID string) {
	plan := Render(msg, task.CustomCaption, task.RemoveOriginalCaption)
	if plan.Kind == KindUnsupported {
		logger.L().Warnf("Task %s: unsupported kind for post %d, skipped, run_id=%s",
			task.HexID(), msg.ID, runID)
		return
	}

	if err := r.platform.Deliver(ctx, task.TargetChannelID, plan); err != nil {
		logger.L().Errorf("Task %s: failed to forward post %d: %v, run_id=%s",
			task.HexID(), msg.ID, err, runID)
		r.platform.Notify(ctx, task.OwnerID, fmt.Sprintf(
			"⚠️ 任务 <code>%s</code> 转发消息 <code>%d</code>（来自 <code>%d</code>）失败。\n错误: %v",
			task.HexID(), msg.ID, msg.ChatID, err))
		return
	}

	if err := r.tasks.UpdateLastProcessed(ctx, task.HexID(), msg.ID); err != nil {
		logger.L().Errorf("Task %s: failed to record last processed id %d: %v",
			task.HexID(), msg.ID, err)
	}
}
