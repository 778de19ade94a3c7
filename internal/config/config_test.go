package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_OWNER_IDS", "")
	t.Setenv("STAGING_CHAT_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "relay_bot", cfg.MongoDBName)
	require.Equal(t, 25, cfg.SendRatePerSecond)
	require.Equal(t, 10, cfg.MinIntervalSeconds)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, 64, cfg.QueueSize)
	require.Empty(t, cfg.BotOwnerIDs)
	require.Zero(t, cfg.StagingChatID)
}

func TestLoadRequiredFields(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	_, err := Load()
	require.ErrorContains(t, err, "TELEGRAM_TOKEN")

	t.Setenv("TELEGRAM_TOKEN", "123456:test-token")
	t.Setenv("MONGO_URI", "")
	_, err = Load()
	require.ErrorContains(t, err, "MONGO_URI")
}

func TestLoadOwnerIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STAGING_CHAT_ID", "")
	t.Setenv("BOT_OWNER_IDS", "123456789, 987654321")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int64{123456789, 987654321}, cfg.BotOwnerIDs)
	// 未配置中转会话时退化为第一个 Owner 的私聊
	require.Equal(t, int64(123456789), cfg.StagingChatID)
}

func TestLoadInvalidOwnerIDs(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_OWNER_IDS", "123,abc")

	_, err := Load()
	require.ErrorContains(t, err, "BOT_OWNER_IDS")
}

func TestLoadStagingChatID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_OWNER_IDS", "123456789")
	t.Setenv("STAGING_CHAT_ID", "-1002003004005")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, int64(-1002003004005), cfg.StagingChatID)
}

func TestLoadTuningOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BOT_OWNER_IDS", "")
	t.Setenv("STAGING_CHAT_ID", "")
	t.Setenv("SEND_RATE_PER_SECOND", "5")
	t.Setenv("MIN_INTERVAL_SECONDS", "30")
	t.Setenv("HANDLER_WORKERS", "2")
	t.Setenv("HANDLER_QUEUE_SIZE", "16")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5, cfg.SendRatePerSecond)
	require.Equal(t, 30, cfg.MinIntervalSeconds)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, 16, cfg.QueueSize)
}

func TestLoadRejectsNonPositiveTuning(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SEND_RATE_PER_SECOND", "0")

	_, err := Load()
	require.ErrorContains(t, err, "SEND_RATE_PER_SECOND")
}
