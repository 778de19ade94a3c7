package relay

import (
	"context"
	"fmt"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"
)

// Service 任务生命周期服务
// 对外（向导/管理界面）暴露创建、暂停、恢复、删除与文案编辑操作，
// 并保证持久状态与调度器作业的联动。
type Service struct {
	tasks       repository.TaskRepository
	scheduler   *Scheduler
	minInterval int // 平台允许的最小调度间隔（秒）
}

// NewService 创建任务生命周期服务
func NewService(tasks repository.TaskRepository, scheduler *Scheduler, minIntervalSeconds int) *Service {
	if minIntervalSeconds < 1 {
		minIntervalSeconds = 1
	}
	return &Service{
		tasks:       tasks,
		scheduler:   scheduler,
		minInterval: minIntervalSeconds,
	}
}

// CreateTaskParams 创建任务的参数
type CreateTaskParams struct {
	OwnerID               int64
	SourceChannelID       int64
	TargetChannelID       int64
	Mode                  string
	CustomCaption         string
	RemoveOriginalCaption bool

	// ranged 专用
	StartID         int64
	EndID           int64
	StepN           int64
	IntervalSeconds int
}

// CreateTask 校验并持久化任务；活跃的区间任务立即获得调度作业
func (s *Service) CreateTask(ctx context.Context, params CreateTaskParams) (string, error) {
	if params.SourceChannelID == 0 || params.TargetChannelID == 0 {
		return "", fmt.Errorf("源频道和目标频道不能为空")
	}

	task := &models.ForwardTask{
		OwnerID:               params.OwnerID,
		SourceChannelID:       params.SourceChannelID,
		TargetChannelID:       params.TargetChannelID,
		Mode:                  params.Mode,
		CustomCaption:         params.CustomCaption,
		RemoveOriginalCaption: params.RemoveOriginalCaption,
		IsActive:              true,
	}

	switch params.Mode {
	case models.ModeReactive:
		// 实时任务没有区间参数
	case models.ModeRanged:
		if params.EndID <= params.StartID {
			return "", fmt.Errorf("结束 ID 必须大于起始 ID")
		}
		if params.StepN < 1 {
			return "", fmt.Errorf("步长必须 >= 1")
		}
		if params.IntervalSeconds < s.minInterval {
			return "", fmt.Errorf("间隔不能小于 %d 秒", s.minInterval)
		}
		task.StartID = params.StartID
		task.EndID = params.EndID
		task.CurrentID = params.StartID // 游标从起点开始
		task.StepN = params.StepN
		task.IntervalSeconds = params.IntervalSeconds
	default:
		return "", fmt.Errorf("未知任务模式: %s", params.Mode)
	}

	id, err := s.tasks.Create(ctx, task)
	if err != nil {
		return "", err
	}

	if task.IsRanged() {
		s.scheduler.Schedule(id, task.Interval())
	}

	logger.L().Infof("Task %s created: mode=%s source=%d target=%d owner=%d",
		id, task.Mode, task.SourceChannelID, task.TargetChannelID, task.OwnerID)
	return id, nil
}

// PauseTask 暂停任务：先停作业，再落盘状态，游标原地保留
func (s *Service) PauseTask(ctx context.Context, id string, requesterID int64, asAdmin bool) error {
	task, err := s.loadOwnedTask(ctx, id, requesterID, asAdmin)
	if err != nil {
		return err
	}
	if !task.IsActive {
		return fmt.Errorf("任务已处于暂停状态")
	}

	if task.IsRanged() {
		s.scheduler.Cancel(id)
	}
	if err := s.tasks.SetActive(ctx, id, false); err != nil {
		return err
	}

	logger.L().Infof("Task %s paused by user %d", id, requesterID)
	return nil
}

// ResumeTask 恢复任务：区间任务从保留的游标继续，而不是从起点重跑
func (s *Service) ResumeTask(ctx context.Context, id string, requesterID int64, asAdmin bool) error {
	task, err := s.loadOwnedTask(ctx, id, requesterID, asAdmin)
	if err != nil {
		return err
	}
	if task.IsActive {
		return fmt.Errorf("任务已在运行中")
	}
	if task.Completed() {
		return fmt.Errorf("任务已完成，无法恢复")
	}

	if err := s.tasks.SetActive(ctx, id, true); err != nil {
		return err
	}
	if task.IsRanged() {
		s.scheduler.Schedule(id, task.Interval())
	}

	logger.L().Infof("Task %s resumed by user %d at cursor %d", id, requesterID, task.CurrentID)
	return nil
}

// DeleteTask 删除任务：先停作业，再删除持久记录
func (s *Service) DeleteTask(ctx context.Context, id string, requesterID int64, asAdmin bool) error {
	task, err := s.loadOwnedTask(ctx, id, requesterID, asAdmin)
	if err != nil {
		return err
	}

	if task.IsRanged() {
		s.scheduler.Cancel(id)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	logger.L().Infof("Task %s deleted by user %d", id, requesterID)
	return nil
}

// SetCaption 更新任务的自定义文案，空串表示清除
func (s *Service) SetCaption(ctx context.Context, id string, requesterID int64, asAdmin bool, caption string) error {
	if _, err := s.loadOwnedTask(ctx, id, requesterID, asAdmin); err != nil {
		return err
	}
	if err := s.tasks.UpdateCaption(ctx, id, caption); err != nil {
		return err
	}
	logger.L().Infof("Task %s caption updated by user %d", id, requesterID)
	return nil
}

// ToggleRemoveCaption 翻转是否丢弃原始文案，返回新值
func (s *Service) ToggleRemoveCaption(ctx context.Context, id string, requesterID int64, asAdmin bool) (bool, error) {
	task, err := s.loadOwnedTask(ctx, id, requesterID, asAdmin)
	if err != nil {
		return false, err
	}

	next := !task.RemoveOriginalCaption
	if err := s.tasks.SetRemoveCaption(ctx, id, next); err != nil {
		return false, err
	}
	logger.L().Infof("Task %s remove_original_caption set to %v by user %d", id, next, requesterID)
	return next, nil
}

// ListTasks 列出用户的全部任务
func (s *Service) ListTasks(ctx context.Context, ownerID int64) ([]*models.ForwardTask, error) {
	return s.tasks.ListByOwner(ctx, ownerID)
}

// loadOwnedTask 获取任务并校验操作者权限
func (s *Service) loadOwnedTask(ctx context.Context, id string, requesterID int64, asAdmin bool) (*models.ForwardTask, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asAdmin && task.OwnerID != requesterID {
		return nil, fmt.Errorf("无权操作此任务")
	}
	return task, nil
}
