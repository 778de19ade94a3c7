package telegram

import (
	"context"
	"fmt"
	"time"

	"relay_bot/internal/config"
	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/relay"
	"relay_bot/internal/telegram/repository"
	"relay_bot/internal/telegram/service"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Config Telegram Bot 配置
type Config struct {
	Token              string  // Bot Token
	OwnerIDs           []int64 // Owner 用户 IDs
	StagingChatID      int64   // 抓取历史消息借道的中转会话
	SendRatePerSecond  int     // 全局发送速率上限
	MinIntervalSeconds int     // 区间任务允许的最小调度间隔
	Workers            int     // Handler 工作池协程数
	QueueSize          int     // Handler 工作池队列大小
}

// Bot Telegram Bot 服务
type Bot struct {
	bot       *bot.Bot
	db        *mongo.Database
	ownerIDs  []int64
	startTime time.Time

	userRepo    repository.UserRepository
	taskRepo    repository.TaskRepository
	userService service.UserService

	limiter      *relay.RateLimiter
	platform     relay.Platform
	engine       *relay.Engine
	scheduler    *relay.Scheduler
	relayService *relay.Service
	reactive     *relay.Reactive

	workerPool *WorkerPool
}

// New 创建 Telegram Bot 实例
func New(cfg Config, db *mongo.Database) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	telegramBot := &Bot{
		db:          db,
		ownerIDs:    cfg.OwnerIDs,
		startTime:   time.Now(),
		userRepo:    userRepo,
		taskRepo:    taskRepo,
		userService: service.NewUserService(userRepo),
		workerPool:  NewWorkerPool(cfg.Workers, cfg.QueueSize),
	}

	b, err := bot.New(cfg.Token, bot.WithDefaultHandler(telegramBot.handleDefault))
	if err != nil {
		telegramBot.workerPool.Shutdown()
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	telegramBot.bot = b

	// 转发引擎组件
	telegramBot.limiter = relay.NewRateLimiter(cfg.SendRatePerSecond)
	telegramBot.platform = relay.NewTelegramPlatform(b, cfg.StagingChatID, telegramBot.limiter)
	telegramBot.engine = relay.NewEngine(taskRepo, telegramBot.platform)
	telegramBot.scheduler = relay.NewScheduler(telegramBot.engine, taskRepo)
	telegramBot.relayService = relay.NewService(taskRepo, telegramBot.scheduler, cfg.MinIntervalSeconds)
	telegramBot.reactive = relay.NewReactive(taskRepo, telegramBot.platform)

	// 初始化 owners
	if err := telegramBot.initOwners(context.Background()); err != nil {
		logger.L().Warnf("Failed to initialize owners: %v", err)
	}

	// 注册 handlers
	telegramBot.registerHandlers()

	// 初始化数据库索引
	if err := telegramBot.ensureIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	logger.L().Info("Telegram bot initialized successfully")
	return telegramBot, nil
}

// InitFromConfig 从应用配置初始化 Telegram Bot
func InitFromConfig(cfg *config.Config, db *mongo.Database) (*Bot, error) {
	telegramCfg := Config{
		Token:              cfg.TelegramToken,
		OwnerIDs:           cfg.BotOwnerIDs,
		StagingChatID:      cfg.StagingChatID,
		SendRatePerSecond:  cfg.SendRatePerSecond,
		MinIntervalSeconds: cfg.MinIntervalSeconds,
		Workers:            cfg.Workers,
		QueueSize:          cfg.QueueSize,
	}
	return New(telegramCfg, db)
}

// Start 恢复定时作业并启动 Bot（阻塞式，ctx 取消后返回）
func (b *Bot) Start(ctx context.Context) error {
	if err := b.scheduler.ScheduleAll(ctx); err != nil {
		logger.L().Errorf("Failed to bootstrap scheduled jobs: %v", err)
	}

	logger.L().Info("Starting Telegram bot...")
	b.bot.Start(ctx)
	logger.L().Info("Telegram bot stopped")
	return nil
}

// Stop 停止后台组件：调度器、工作池、限流器
func (b *Bot) Stop(ctx context.Context) error {
	logger.L().Info("Stopping Telegram bot...")
	b.scheduler.Shutdown()
	b.workerPool.Shutdown()
	b.limiter.Close()
	return nil
}

// handleDefault 处理未命中命令的更新；频道新消息走实时转发路径
func (b *Bot) handleDefault(ctx context.Context, botInstance *bot.Bot, update *botModels.Update) {
	if update.ChannelPost == nil {
		return
	}

	// 实时转发在工作池执行，避免阻塞更新循环
	b.workerPool.Submit(HandlerTask{
		Ctx:         ctx,
		BotInstance: botInstance,
		Update:      update,
		Handler: func(ctx context.Context, _ *bot.Bot, u *botModels.Update) {
			b.reactive.OnNewPost(ctx, relay.FromBotMessage(u.ChannelPost))
		},
	})
}

// initOwners 初始化 owner 角色
func (b *Bot) initOwners(ctx context.Context) error {
	for _, ownerID := range b.ownerIDs {
		user := &models.User{
			TelegramID:   ownerID,
			Role:         models.RoleOwner,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
			LastActiveAt: time.Now(),
		}
		if err := b.userRepo.CreateOrUpdate(ctx, user); err != nil {
			logger.L().Warnf("Failed to initialize owner %d: %v", ownerID, err)
			continue
		}
		logger.L().Infof("Initialized owner: %d", ownerID)
	}
	return nil
}

// ensureIndexes 确保所有数据库索引存在
func (b *Bot) ensureIndexes(ctx context.Context) error {
	if err := b.userRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure user indexes: %w", err)
	}
	logger.L().Debug("User indexes ensured")

	if err := b.taskRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure task indexes: %w", err)
	}
	logger.L().Debug("Task indexes ensured")

	return nil
}
