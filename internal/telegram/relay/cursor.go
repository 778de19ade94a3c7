package relay

import (
	"context"
	"errors"
	"fmt"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"
)

// Engine 区间回放任务的游标引擎
// 一次 Tick 完成一轮 抓取 → 转换 → 投递 → 归类 → 前进/保持 → 落盘。
// 同一任务的两个 Tick 不会并发执行，由 Scheduler 的串行循环保证。
type Engine struct {
	tasks    repository.TaskRepository
	platform Platform
}

// NewEngine 创建游标引擎
func NewEngine(tasks repository.TaskRepository, platform Platform) *Engine {
	return &Engine{
		tasks:    tasks,
		platform: platform,
	}
}

// TickResult 单次 Tick 的执行结果
type TickResult struct {
	Outcome   Outcome
	Advanced  bool // 游标是否前进并落盘
	Completed bool // 任务是否在本次 Tick 转入终态
	Stop      bool // 任务的调度循环是否应当退出
}

// Tick 执行一次区间回放推进
// success 与 skip 都按步长前进游标；硬失败保持游标并通知属主，下个周期重试同一 ID。
func (e *Engine) Tick(ctx context.Context, taskID string) TickResult {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			logger.L().Infof("Task %s no longer exists, stopping its job", taskID)
			return TickResult{Stop: true}
		}
		// store 读取失败只影响本次 Tick，作业保留，下个周期重试
		logger.L().Errorf("Tick failed to load task %s: %v", taskID, err)
		return TickResult{Outcome: OutcomeOther}
	}

	if !task.IsActive || !task.IsRanged() {
		// 防御：调度器不应当触发非活跃或非区间任务
		logger.L().Warnf("Tick fired for inactive task %s, stopping its job", taskID)
		return TickResult{Stop: true}
	}

	outcome := e.attempt(ctx, task)
	if outcome.Hard() {
		logger.L().Warnf("Task %s: delivery of message %d failed (%s), cursor held at %d",
			taskID, task.CurrentID, outcome, task.CurrentID)
		e.platform.Notify(ctx, task.OwnerID, fmt.Sprintf(
			"⚠️ 任务 <code>%s</code> 投递消息 <code>%d</code> 失败（%s），将在下个周期重试。",
			taskID, task.CurrentID, outcome))
		return TickResult{Outcome: outcome}
	}

	next := task.CurrentID + task.StepN
	if err := e.tasks.UpdateCursor(ctx, taskID, next); err != nil {
		// 游标落盘失败：消息可能已经发出，下个周期以旧游标重试会造成一次重复投递，
		// 这是接受的 at-least-once 语义
		logger.L().Errorf("Task %s: failed to persist cursor %d: %v", taskID, next, err)
		return TickResult{Outcome: outcome}
	}

	logger.L().Debugf("Task %s: cursor advanced %d -> %d (%s)", taskID, task.CurrentID, next, outcome)

	if next > task.EndID {
		if err := e.tasks.SetActive(ctx, taskID, false); err != nil {
			logger.L().Errorf("Task %s: failed to deactivate on completion: %v", taskID, err)
		}
		logger.L().Infof("Task %s completed: cursor %d passed end %d", taskID, next, task.EndID)
		e.platform.Notify(ctx, task.OwnerID, fmt.Sprintf(
			"✅ 任务 <code>%s</code> 已完成区间 <code>%d - %d</code> 的回放。",
			taskID, task.StartID, task.EndID))
		return TickResult{Outcome: outcome, Advanced: true, Completed: true, Stop: true}
	}

	return TickResult{Outcome: outcome, Advanced: true}
}

// attempt 抓取并投递 current_id 指向的消息，返回归类结果
func (e *Engine) attempt(ctx context.Context, task *models.ForwardTask) Outcome {
	msg, err := e.platform.FetchMessage(ctx, task.SourceChannelID, task.CurrentID)
	if err != nil {
		outcome := ClassifyError(err)
		if outcome == OutcomeSkip {
			logger.L().Warnf("Task %s: message %d missing at source channel %d, skipping",
				task.HexID(), task.CurrentID, task.SourceChannelID)
		}
		return outcome
	}

	plan := Render(msg, task.CustomCaption, task.RemoveOriginalCaption)
	if plan.Kind == KindUnsupported {
		logger.L().Warnf("Task %s: message %d has unsupported kind, skipping", task.HexID(), task.CurrentID)
		return OutcomeSkip
	}

	if err := e.platform.Deliver(ctx, task.TargetChannelID, plan); err != nil {
		return ClassifyError(err)
	}

	return OutcomeSuccess
}
