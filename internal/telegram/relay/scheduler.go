package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"
)

// 单次 Tick 的执行时限
const defaultTickTimeout = 2 * time.Minute

// tickRunner 供调度器驱动的单任务推进接口
type tickRunner interface {
	Tick(ctx context.Context, taskID string) TickResult
}

// Scheduler 区间回放任务的作业调度器
// 每个活跃的区间任务对应一个定时循环协程；jobs 表由调度器独占持有，
// Schedule/Cancel 互斥执行，不会泄漏重复定时器或误删已替换的句柄。
type Scheduler struct {
	engine      tickRunner
	tasks       repository.TaskRepository
	tickTimeout time.Duration

	opMu sync.Mutex // 串行化 Schedule / Cancel / Shutdown
	mu   sync.Mutex // 保护 jobs 表
	jobs map[string]*job
}

// job 一个活跃任务的定时器句柄
type job struct {
	taskID   string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler 创建调度器
func NewScheduler(engine tickRunner, tasks repository.TaskRepository) *Scheduler {
	return &Scheduler{
		engine:      engine,
		tasks:       tasks,
		tickTimeout: defaultTickTimeout,
		jobs:        make(map[string]*job),
	}
}

// ScheduleAll 启动时为每个活跃的区间任务恢复一个作业，从已落盘的游标续跑
// 幂等：已有作业的任务不会被重复调度。
func (s *Scheduler) ScheduleAll(ctx context.Context) error {
	tasks, err := s.tasks.ListActive(ctx, models.ModeRanged)
	if err != nil {
		return fmt.Errorf("failed to load active ranged tasks: %w", err)
	}

	for _, task := range tasks {
		if task.Completed() {
			// 异常数据：终态任务不应当仍是活跃的，修正而不是调度
			logger.L().Warnf("Task %s is past its end but still active, deactivating", task.HexID())
			if err := s.tasks.SetActive(ctx, task.HexID(), false); err != nil {
				logger.L().Errorf("Failed to deactivate stale task %s: %v", task.HexID(), err)
			}
			continue
		}
		s.scheduleIfAbsent(task.HexID(), task.Interval())
	}

	logger.L().Infof("Scheduler bootstrap: %d jobs running for %d active ranged tasks",
		s.ActiveJobs(), len(tasks))
	return nil
}

// Schedule 为任务创建（或替换）作业
// 替换时先等旧循环完全退出，保证同一任务不会出现两个并发的 Tick。
func (s *Scheduler) Schedule(taskID string, interval time.Duration) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stopJob(s.detach(taskID))
	s.startJob(taskID, interval)
}

// Cancel 销毁任务的作业；任务没有作业时为无操作
// 已经开始执行的 Tick 允许跑完并落盘，只保证之后不再触发。
func (s *Scheduler) Cancel(taskID string) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stopJob(s.detach(taskID))
}

// Shutdown 取消全部作业并等待所有定时循环退出
func (s *Scheduler) Shutdown() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.jobs = make(map[string]*job)
	s.mu.Unlock()

	for _, j := range jobs {
		s.stopJob(j)
	}
	logger.L().Infof("Scheduler shut down, %d jobs stopped", len(jobs))
}

// ActiveJobs 当前存活的作业数
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// scheduleIfAbsent 任务尚无作业时才创建，返回是否新建
func (s *Scheduler) scheduleIfAbsent(taskID string, interval time.Duration) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	_, exists := s.jobs[taskID]
	s.mu.Unlock()
	if exists {
		return false
	}

	s.startJob(taskID, interval)
	return true
}

// startJob 建立作业句柄并启动定时循环，调用方需持有 opMu
func (s *Scheduler) startJob(taskID string, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		taskID:   taskID,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[taskID] = j
	s.mu.Unlock()

	go s.run(ctx, j)
	logger.L().Infof("Scheduled job for task %s, interval=%s", taskID, interval)
}

// stopJob 取消作业并等待其循环退出；j 为 nil 时无操作
func (s *Scheduler) stopJob(j *job) {
	if j == nil {
		return
	}
	j.cancel()
	<-j.done
	logger.L().Infof("Cancelled job for task %s", j.taskID)
}

// detach 从 jobs 表摘下任务的作业句柄
func (s *Scheduler) detach(taskID string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.jobs[taskID]
	if j != nil {
		delete(s.jobs, taskID)
	}
	return j
}

// detachSelf 作业循环自行退出时的摘除
// 按句柄比对：作业若已被 Schedule 替换，不会误删新作业。
func (s *Scheduler) detachSelf(j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.jobs[j.taskID] == j {
		delete(s.jobs, j.taskID)
	}
}

// run 单个任务的定时循环
// Tick 串行执行：下一轮计时在上一轮 Tick 完成之后才开始，
// 保证游标落盘先于下一次网络尝试。
func (s *Scheduler) run(ctx context.Context, j *job) {
	defer close(j.done)

	timer := time.NewTimer(j.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// 取消信号在触发与执行之间到达时不再开始新的 Tick
		if ctx.Err() != nil {
			return
		}

		// Tick 用独立的超时上下文：取消作业不打断进行中的投递
		tickCtx, cancel := context.WithTimeout(context.Background(), s.tickTimeout)
		result := s.engine.Tick(tickCtx, j.taskID)
		cancel()

		if result.Stop {
			s.detachSelf(j)
			return
		}

		timer.Reset(j.interval)
	}
}
