package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config 应用程序配置
type Config struct {
	TelegramToken      string  // Telegram Bot API Token
	BotOwnerIDs        []int64 // Bot 管理员 ID 列表
	MongoURI           string  // MongoDB 连接 URI
	MongoDBName        string  // MongoDB 数据库名称
	StagingChatID      int64   // 中转会话 ID（按 ID 抓取历史消息时使用）
	SendRatePerSecond  int     // 全局发送速率上限（条/秒）
	MinIntervalSeconds int     // 定时任务允许的最小间隔（秒）
	Workers            int     // Handler 工作池协程数
	QueueSize          int     // Handler 工作池队列大小
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoDBName == "" {
		mongoDBName = "relay_bot"
	}

	cfg := &Config{
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDBName:        mongoDBName,
		SendRatePerSecond:  25,
		MinIntervalSeconds: 10,
		Workers:            8,
		QueueSize:          64,
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}

	// 解析BOT_OWNER_IDS
	ownerIDsStr := os.Getenv("BOT_OWNER_IDS")
	if ownerIDsStr != "" {
		var err error
		cfg.BotOwnerIDs, err = parseOwnerIDs(ownerIDsStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse BOT_OWNER_IDS: %w", err)
		}
	}

	// 解析STAGING_CHAT_ID（未设置时退化为第一个 Owner 的私聊）
	stagingStr := strings.TrimSpace(os.Getenv("STAGING_CHAT_ID"))
	if stagingStr != "" {
		stagingID, err := strconv.ParseInt(stagingStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse STAGING_CHAT_ID: %w", err)
		}
		cfg.StagingChatID = stagingID
	} else if len(cfg.BotOwnerIDs) > 0 {
		cfg.StagingChatID = cfg.BotOwnerIDs[0]
	}

	if err := parsePositiveInt("SEND_RATE_PER_SECOND", &cfg.SendRatePerSecond); err != nil {
		return nil, err
	}
	if err := parsePositiveInt("MIN_INTERVAL_SECONDS", &cfg.MinIntervalSeconds); err != nil {
		return nil, err
	}
	if err := parsePositiveInt("HANDLER_WORKERS", &cfg.Workers); err != nil {
		return nil, err
	}
	if err := parsePositiveInt("HANDLER_QUEUE_SIZE", &cfg.QueueSize); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseOwnerIDs 解析逗号分隔的用户ID字符串
// 支持格式: "123456789" 或 "123456789,987654321"
func parseOwnerIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid owner ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// parsePositiveInt 读取可选的正整数环境变量，未设置时保留默认值
func parsePositiveInt(name string, dst *int) error {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if value < 1 {
		return fmt.Errorf("%s must be >= 1, got %d", name, value)
	}

	*dst = value
	return nil
}
