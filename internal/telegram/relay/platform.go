package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"relay_bot/internal/logger"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

// Outcome 一次投递尝试的归类结果
type Outcome int

const (
	OutcomeSuccess     Outcome = iota
	OutcomeSkip                // 源消息缺失或不可转发，按无操作投递处理
	OutcomePermission          // Bot 无权访问源或目标，需要人工修复
	OutcomeRateLimited         // 平台限流，依赖任务间隔作为唯一退避
	OutcomeOther               // 其他传输/平台错误
)

// Hard 是否为硬失败：投递未发生，且重试前景依赖外部干预或时间
func (o Outcome) Hard() bool {
	return o == OutcomePermission || o == OutcomeRateLimited || o == OutcomeOther
}

// String 返回归类名称（用于日志和通知）
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomePermission:
		return "permission denied"
	case OutcomeRateLimited:
		return "rate limited"
	default:
		return "delivery error"
	}
}

// Platform 消息平台客户端
// 认证、连接管理和限流预算归外部客户端；这里只覆盖转发引擎需要的操作。
type Platform interface {
	// FetchMessage 抓取源频道中指定 ID 的消息
	FetchMessage(ctx context.Context, channelID, messageID int64) (*SourceMessage, error)

	// Deliver 将发送参数投递到目标会话
	Deliver(ctx context.Context, chatID int64, plan SendPlan) error

	// Notify 给用户发送一条通知；尽力而为，失败只记录日志
	Notify(ctx context.Context, userID int64, text string)
}

// ClassifyError 将平台错误映射到投递结果分类
func ClassifyError(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return OutcomeRateLimited
	}

	if errors.Is(err, bot.ErrorForbidden) {
		return OutcomePermission
	}

	if errors.Is(err, bot.ErrorBadRequest) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "message to forward not found"),
			strings.Contains(msg, "message to copy not found"),
			strings.Contains(msg, "message can't be forwarded"):
			return OutcomeSkip
		case strings.Contains(msg, "chat not found"):
			return OutcomePermission
		}
		return OutcomeOther
	}

	return OutcomeOther
}

// TelegramPlatform 基于 Bot API 的平台实现
type TelegramPlatform struct {
	bot           *bot.Bot
	stagingChatID int64
	limiter       *RateLimiter
}

// NewTelegramPlatform 创建平台客户端
// stagingChatID 是按 ID 抓取历史消息时借道的中转会话。
func NewTelegramPlatform(b *bot.Bot, stagingChatID int64, limiter *RateLimiter) *TelegramPlatform {
	return &TelegramPlatform{
		bot:           b,
		stagingChatID: stagingChatID,
		limiter:       limiter,
	}
}

// FetchMessage 借道中转会话抓取消息
// Bot API 没有按 ID 读消息的接口：先 forward 到中转会话拿到消息对象，
// 再删除临时消息。删除失败不影响抓取结果。
func (p *TelegramPlatform) FetchMessage(ctx context.Context, channelID, messageID int64) (*SourceMessage, error) {
	if p.stagingChatID == 0 {
		return nil, fmt.Errorf("staging chat is not configured")
	}

	forwarded, err := p.bot.ForwardMessage(ctx, &bot.ForwardMessageParams{
		ChatID:     p.stagingChatID,
		FromChatID: channelID,
		MessageID:  int(messageID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %d from channel %d: %w", messageID, channelID, err)
	}

	msg := FromBotMessage(forwarded)
	msg.ID = messageID
	msg.ChatID = channelID

	if _, err := p.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    p.stagingChatID,
		MessageID: forwarded.ID,
	}); err != nil {
		logger.L().Warnf("Failed to delete staging copy %d: %v", forwarded.ID, err)
	}

	return msg, nil
}

// Deliver 将发送参数投递到目标会话
func (p *TelegramPlatform) Deliver(ctx context.Context, chatID int64, plan SendPlan) error {
	if plan.Kind == KindUnsupported {
		return fmt.Errorf("cannot deliver unsupported message kind")
	}
	if plan.Empty() {
		// 文案策略可能把文本消息清成空串，此时无内容可发
		return nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait error: %w", err)
	}

	var parseMode botModels.ParseMode
	if plan.Caption != "" {
		parseMode = botModels.ParseModeHTML
	}

	var err error
	switch plan.Kind {
	case KindPhoto:
		_, err = p.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    chatID,
			Photo:     &botModels.InputFileString{Data: plan.FileID},
			Caption:   plan.Caption,
			ParseMode: parseMode,
		})
	case KindVideo:
		_, err = p.bot.SendVideo(ctx, &bot.SendVideoParams{
			ChatID:    chatID,
			Video:     &botModels.InputFileString{Data: plan.FileID},
			Caption:   plan.Caption,
			ParseMode: parseMode,
		})
	case KindDocument:
		_, err = p.bot.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:    chatID,
			Document:  &botModels.InputFileString{Data: plan.FileID},
			Caption:   plan.Caption,
			ParseMode: parseMode,
		})
	case KindText:
		_, err = p.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      plan.Text,
			ParseMode: botModels.ParseModeHTML,
		})
	}

	if err != nil {
		return fmt.Errorf("failed to deliver %s to chat %d: %w", plan.Kind, chatID, err)
	}
	return nil
}

// Notify 给用户发送一条通知；失败只记录日志，绝不向上传播
func (p *TelegramPlatform) Notify(ctx context.Context, userID int64, text string) {
	if userID == 0 {
		return
	}
	if err := p.limiter.Wait(ctx); err != nil {
		logger.L().Warnf("Skipped notification to user %d: %v", userID, err)
		return
	}
	if _, err := p.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: botModels.ParseModeHTML,
	}); err != nil {
		logger.L().Warnf("Failed to notify user %d: %v", userID, err)
	}
}

// FromBotMessage 将 Bot API 消息对象转换为带标签的源消息视图
func FromBotMessage(m *botModels.Message) *SourceMessage {
	msg := &SourceMessage{
		ID:      int64(m.ID),
		ChatID:  m.Chat.ID,
		Text:    m.Text,
		Caption: m.Caption,
	}

	switch {
	case len(m.Photo) > 0:
		msg.Kind = KindPhoto
		msg.FileID = m.Photo[len(m.Photo)-1].FileID // 取最大尺寸
	case m.Video != nil:
		msg.Kind = KindVideo
		msg.FileID = m.Video.FileID
	case m.Document != nil:
		msg.Kind = KindDocument
		msg.FileID = m.Document.FileID
	case m.Text != "":
		msg.Kind = KindText
	default:
		msg.Kind = KindUnsupported
	}

	return msg
}
