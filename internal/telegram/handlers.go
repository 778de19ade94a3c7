package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/relay"
	"relay_bot/internal/telegram/service"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

// registerHandlers 注册所有命令处理器（异步执行）
func (b *Bot) registerHandlers() {
	// 普通命令
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact,
		b.asyncHandler(b.handleStart))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/ping", bot.MatchTypeExact,
		b.asyncHandler(b.handlePing))

	// 任务管理命令
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/tasks", bot.MatchTypeExact,
		b.asyncHandler(b.handleListTasks))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/newtask", bot.MatchTypePrefix,
		b.asyncHandler(b.handleNewTask))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pause", bot.MatchTypePrefix,
		b.asyncHandler(b.handlePauseTask))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resume", bot.MatchTypePrefix,
		b.asyncHandler(b.handleResumeTask))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/del", bot.MatchTypePrefix,
		b.asyncHandler(b.handleDeleteTask))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/caption", bot.MatchTypePrefix,
		b.asyncHandler(b.handleSetCaption))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/rmcaption", bot.MatchTypePrefix,
		b.asyncHandler(b.handleToggleRemoveCaption))

	// 管理员命令
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact,
		b.asyncHandler(b.RequireAdmin(b.handleStatus)))

	// Owner 命令
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/ban", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleBanUser)))
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/unban", bot.MatchTypePrefix,
		b.asyncHandler(b.RequireOwner(b.handleUnbanUser)))

	logger.L().Debug("All handlers registered with async execution")
}

// handleStart 处理 /start 命令
func (b *Bot) handleStart(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userInfo := &service.TelegramUserInfo{
		TelegramID:   update.Message.From.ID,
		Username:     update.Message.From.Username,
		FirstName:    update.Message.From.FirstName,
		LastName:     update.Message.From.LastName,
		LanguageCode: update.Message.From.LanguageCode,
	}

	if err := b.userService.RegisterOrUpdateUser(ctx, userInfo); err != nil {
		b.sendErrorMessage(ctx, update.Message.Chat.ID, "注册失败，请稍后重试")
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 你好, %s!\n\n本 Bot 负责在频道之间转发消息。\n\n可用命令:\n"+
			"/tasks - 查看我的任务\n"+
			"/newtask - 创建任务\n"+
			"/pause &lt;id&gt; - 暂停任务\n"+
			"/resume &lt;id&gt; - 恢复任务\n"+
			"/del &lt;id&gt; - 删除任务\n"+
			"/caption &lt;id&gt; &lt;文案&gt; - 设置自定义文案\n"+
			"/rmcaption &lt;id&gt; - 切换是否丢弃原始文案\n"+
			"/ping - 测试连接",
		update.Message.From.FirstName,
	)

	b.sendMessage(ctx, update.Message.Chat.ID, welcomeText)
}

// handlePing 处理 /ping 命令
func (b *Bot) handlePing(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}

	if update.Message.From != nil {
		_ = b.userService.UpdateUserActivity(ctx, update.Message.From.ID)
	}

	b.sendMessage(ctx, update.Message.Chat.ID, b.buildPingMessage(ctx))
}

// handleListTasks 处理 /tasks 命令
func (b *Bot) handleListTasks(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	tasks, err := b.relayService.ListTasks(ctx, update.Message.From.ID)
	if err != nil {
		logger.L().Errorf("Failed to list tasks for user %d: %v", update.Message.From.ID, err)
		b.sendErrorMessage(ctx, update.Message.Chat.ID, "查询任务失败，请稍后重试")
		return
	}

	if len(tasks) == 0 {
		b.sendMessage(ctx, update.Message.Chat.ID, "📭 暂无任务。使用 /newtask 创建。")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 共 %d 个任务\n", len(tasks)))
	for _, task := range tasks {
		sb.WriteString("\n" + formatTask(task))
	}

	b.sendMessage(ctx, update.Message.Chat.ID, sb.String())
}

// formatTask 渲染一行任务概览
func formatTask(task *models.ForwardTask) string {
	state := "⏸ 已暂停"
	switch {
	case task.Completed():
		state = "🏁 已完成"
	case task.IsActive:
		state = "▶️ 运行中"
	}

	line := fmt.Sprintf("<code>%s</code> %s\n<code>%d</code> → <code>%d</code>",
		task.HexID(), state, task.SourceChannelID, task.TargetChannelID)

	if task.IsRanged() {
		line += fmt.Sprintf("\n区间 %d-%d 游标 %d 步长 %d 间隔 %ds",
			task.StartID, task.EndID, task.CurrentID, task.StepN, task.IntervalSeconds)
	} else {
		line += "\n实时转发"
	}
	return line
}

// handleNewTask 处理 /newtask 命令
// 用法:
//
//	/newtask reactive <源频道ID> <目标频道ID>
//	/newtask ranged <源频道ID> <目标频道ID> <起始ID> <结束ID> <步长> <间隔秒数>
func (b *Bot) handleNewTask(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	usage := "用法:\n/newtask reactive &lt;源频道ID&gt; &lt;目标频道ID&gt;\n" +
		"/newtask ranged &lt;源频道ID&gt; &lt;目标频道ID&gt; &lt;起始ID&gt; &lt;结束ID&gt; &lt;步长&gt; &lt;间隔秒数&gt;"

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 4 {
		b.sendErrorMessage(ctx, chatID, usage)
		return
	}

	params := relay.CreateTaskParams{
		OwnerID:               update.Message.From.ID,
		RemoveOriginalCaption: true, // 与原始文案解耦是默认策略
	}

	var err error
	if params.SourceChannelID, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
		b.sendErrorMessage(ctx, chatID, "源频道 ID 无效")
		return
	}
	if params.TargetChannelID, err = strconv.ParseInt(parts[3], 10, 64); err != nil {
		b.sendErrorMessage(ctx, chatID, "目标频道 ID 无效")
		return
	}

	switch parts[1] {
	case models.ModeReactive:
		params.Mode = models.ModeReactive
	case models.ModeRanged:
		if len(parts) < 8 {
			b.sendErrorMessage(ctx, chatID, usage)
			return
		}
		params.Mode = models.ModeRanged
		fields := []struct {
			raw string
			dst *int64
		}{
			{parts[4], &params.StartID},
			{parts[5], &params.EndID},
			{parts[6], &params.StepN},
		}
		for _, f := range fields {
			if *f.dst, err = strconv.ParseInt(f.raw, 10, 64); err != nil {
				b.sendErrorMessage(ctx, chatID, fmt.Sprintf("参数 %q 无效", f.raw))
				return
			}
		}
		if params.IntervalSeconds, err = strconv.Atoi(parts[7]); err != nil {
			b.sendErrorMessage(ctx, chatID, fmt.Sprintf("参数 %q 无效", parts[7]))
			return
		}
	default:
		b.sendErrorMessage(ctx, chatID, usage)
		return
	}

	id, err := b.relayService.CreateTask(ctx, params)
	if err != nil {
		b.sendErrorMessage(ctx, chatID, err.Error())
		return
	}

	b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("任务已创建: <code>%s</code>", id))
}

// handlePauseTask 处理 /pause 命令
func (b *Bot) handlePauseTask(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	b.taskLifecycleCommand(ctx, update, "pause", func(id string, requesterID int64, asAdmin bool) error {
		return b.relayService.PauseTask(ctx, id, requesterID, asAdmin)
	}, "任务已暂停")
}

// handleResumeTask 处理 /resume 命令
func (b *Bot) handleResumeTask(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	b.taskLifecycleCommand(ctx, update, "resume", func(id string, requesterID int64, asAdmin bool) error {
		return b.relayService.ResumeTask(ctx, id, requesterID, asAdmin)
	}, "任务已恢复")
}

// handleDeleteTask 处理 /del 命令
func (b *Bot) handleDeleteTask(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	b.taskLifecycleCommand(ctx, update, "del", func(id string, requesterID int64, asAdmin bool) error {
		return b.relayService.DeleteTask(ctx, id, requesterID, asAdmin)
	}, "任务已删除")
}

// taskLifecycleCommand 解析 "/<cmd> <id>" 形式的任务操作命令并执行
func (b *Bot) taskLifecycleCommand(ctx context.Context, update *botModels.Update, name string,
	op func(id string, requesterID int64, asAdmin bool) error, successText string) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, fmt.Sprintf("用法: /%s &lt;任务ID&gt;", name))
		return
	}

	requesterID := update.Message.From.ID
	asAdmin, _ := b.userService.CheckAdminPermission(ctx, requesterID)

	if err := op(parts[1], requesterID, asAdmin); err != nil {
		b.sendErrorMessage(ctx, chatID, err.Error())
		return
	}
	b.sendSuccessMessage(ctx, chatID, successText)
}

// handleSetCaption 处理 /caption 命令
func (b *Bot) handleSetCaption(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.SplitN(update.Message.Text, " ", 3)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, "用法: /caption &lt;任务ID&gt; &lt;文案&gt;（文案留空表示清除）")
		return
	}

	caption := ""
	if len(parts) == 3 {
		caption = strings.TrimSpace(parts[2])
	}

	requesterID := update.Message.From.ID
	asAdmin, _ := b.userService.CheckAdminPermission(ctx, requesterID)

	if err := b.relayService.SetCaption(ctx, parts[1], requesterID, asAdmin, caption); err != nil {
		b.sendErrorMessage(ctx, chatID, err.Error())
		return
	}

	if caption == "" {
		b.sendSuccessMessage(ctx, chatID, "自定义文案已清除")
	} else {
		b.sendSuccessMessage(ctx, chatID, "自定义文案已更新")
	}
}

// handleToggleRemoveCaption 处理 /rmcaption 命令
func (b *Bot) handleToggleRemoveCaption(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, "用法: /rmcaption &lt;任务ID&gt;")
		return
	}

	requesterID := update.Message.From.ID
	asAdmin, _ := b.userService.CheckAdminPermission(ctx, requesterID)

	remove, err := b.relayService.ToggleRemoveCaption(ctx, parts[1], requesterID, asAdmin)
	if err != nil {
		b.sendErrorMessage(ctx, chatID, err.Error())
		return
	}

	if remove {
		b.sendSuccessMessage(ctx, chatID, "转发时将丢弃原始文案")
	} else {
		b.sendSuccessMessage(ctx, chatID, "转发时将保留原始文案")
	}
}

// handleStatus 处理 /status 命令（管理员）
func (b *Bot) handleStatus(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil {
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, b.buildStatusMessage(ctx))
}

// handleBanUser 处理 /ban 命令（Owner）
// 用法: /ban <user_id> [小时数]，不带小时数表示永久封禁
func (b *Bot) handleBanUser(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, "用法: /ban &lt;user_id&gt; [小时数]")
		return
	}

	targetID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.sendErrorMessage(ctx, chatID, "无效的用户 ID")
		return
	}

	var duration time.Duration
	if len(parts) >= 3 {
		hours, err := strconv.Atoi(parts[2])
		if err != nil || hours < 1 {
			b.sendErrorMessage(ctx, chatID, "小时数必须是正整数")
			return
		}
		duration = time.Duration(hours) * time.Hour
	}

	if err := b.userService.BanUser(ctx, targetID, update.Message.From.ID, duration); err != nil {
		b.sendErrorMessage(ctx, chatID, err.Error())
		return
	}

	if duration > 0 {
		b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("用户 %d 已封禁 %s", targetID, duration))
	} else {
		b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("用户 %d 已永久封禁", targetID))
	}
}

// handleUnbanUser 处理 /unban 命令（Owner）
func (b *Bot) handleUnbanUser(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	parts := strings.Fields(update.Message.Text)
	if len(parts) < 2 {
		b.sendErrorMessage(ctx, chatID, "用法: /unban &lt;user_id&gt;")
		return
	}

	targetID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		b.sendErrorMessage(ctx, chatID, "无效的用户 ID")
		return
	}

	if err := b.userService.UnbanUser(ctx, targetID); err != nil {
		b.sendErrorMessage(ctx, chatID, err.Error())
		return
	}

	b.sendSuccessMessage(ctx, chatID, fmt.Sprintf("用户 %d 已解封", targetID))
}
