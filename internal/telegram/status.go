package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
)

// buildPingMessage 构建 /ping 命令的响应文本
func (b *Bot) buildPingMessage(ctx context.Context) string {
	lines := []string{"🏓 Pong!"}

	if !b.startTime.IsZero() {
		uptime := time.Since(b.startTime)
		lines = append(lines, fmt.Sprintf("⏱ 运行时间: %s", formatDuration(uptime)))
	}

	if b.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := b.db.Client().Ping(dbCtx, nil); err != nil {
			lines = append(lines, fmt.Sprintf("🗄 数据库: ⚠️ %v", err))
		} else {
			lines = append(lines, "🗄 数据库: ✅ 正常")
		}
	}

	return strings.Join(lines, "\n")
}

// buildStatusMessage 构建 /status 命令的响应文本（管理员视角）
func (b *Bot) buildStatusMessage(ctx context.Context) string {
	lines := []string{"📊 运行状态"}

	lines = append(lines, fmt.Sprintf("⏱ 运行时间: %s", formatDuration(time.Since(b.startTime))))
	lines = append(lines, fmt.Sprintf("⏰ 定时作业: %d 个运行中", b.scheduler.ActiveJobs()))

	stats := b.workerPool.Stats()
	lines = append(lines, fmt.Sprintf("🛠 工作池: %d 个协程，队列 %d/%d",
		stats.Workers, stats.QueueLength, stats.QueueCapacity))

	reactive, err := b.taskRepo.ListActive(ctx, models.ModeReactive)
	if err != nil {
		logger.L().Errorf("Failed to count reactive tasks: %v", err)
	} else {
		lines = append(lines, fmt.Sprintf("📡 活跃实时任务: %d", len(reactive)))
	}

	ranged, err := b.taskRepo.ListActive(ctx, models.ModeRanged)
	if err != nil {
		logger.L().Errorf("Failed to count ranged tasks: %v", err)
	} else {
		lines = append(lines, fmt.Sprintf("🔁 活跃区间任务: %d", len(ranged)))
	}

	return strings.Join(lines, "\n")
}

// formatDuration 将持续时间格式化为人类可读的字符串
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	d = d.Round(time.Second)

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	parts := make([]string, 0, 4)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d天", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d小时", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d分钟", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d秒", seconds))
	}

	return strings.Join(parts, " ")
}
