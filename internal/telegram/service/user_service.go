package service

import (
	"context"
	"fmt"
	"time"

	"relay_bot/internal/logger"
	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"
)

// UserServiceImpl 用户服务实现
type UserServiceImpl struct {
	userRepo repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
	}
}

// RegisterOrUpdateUser 注册或更新用户
func (s *UserServiceImpl) RegisterOrUpdateUser(ctx context.Context, info *TelegramUserInfo) error {
	user := &models.User{
		TelegramID:   info.TelegramID,
		Username:     info.Username,
		FirstName:    info.FirstName,
		LastName:     info.LastName,
		LanguageCode: info.LanguageCode,
		UpdatedAt:    time.Now(),
		LastActiveAt: time.Now(),
	}

	if err := s.userRepo.CreateOrUpdate(ctx, user); err != nil {
		logger.L().Errorf("Failed to register/update user %d: %v", info.TelegramID, err)
		return fmt.Errorf("failed to register user: %w", err)
	}

	logger.L().Infof("User %d (%s) registered/updated", info.TelegramID, info.Username)
	return nil
}

// UpdateUserActivity 更新用户最后活跃时间
func (s *UserServiceImpl) UpdateUserActivity(ctx context.Context, telegramID int64) error {
	return s.userRepo.UpdateLastActive(ctx, telegramID)
}

// CheckAdminPermission 检查是否具有管理员权限（Admin 或 Owner）
func (s *UserServiceImpl) CheckAdminPermission(ctx context.Context, telegramID int64) (bool, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// CheckOwnerPermission 检查是否为 Owner
func (s *UserServiceImpl) CheckOwnerPermission(ctx context.Context, telegramID int64) (bool, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return false, err
	}
	return user.IsOwner(), nil
}

// IsBanned 当前是否处于封禁状态；查询失败时按未封禁处理
func (s *UserServiceImpl) IsBanned(ctx context.Context, telegramID int64) bool {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return false
	}
	return user.BannedAt(time.Now())
}

// BanUser 封禁用户，duration 为 0 表示永久
func (s *UserServiceImpl) BanUser(ctx context.Context, targetID, bannedBy int64, duration time.Duration) error {
	banner, err := s.userRepo.GetByTelegramID(ctx, bannedBy)
	if err != nil {
		return fmt.Errorf("操作者不存在")
	}
	if !banner.IsOwner() {
		logger.L().Warnf("User %d attempted to ban %d without owner permission", bannedBy, targetID)
		return fmt.Errorf("只有 Owner 可以封禁用户")
	}

	target, err := s.userRepo.GetByTelegramID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("目标用户不存在")
	}
	if target.IsOwner() {
		return fmt.Errorf("不能封禁 Owner")
	}

	var until *time.Time
	if duration > 0 {
		t := time.Now().Add(duration)
		until = &t
	}

	if err := s.userRepo.SetBanned(ctx, targetID, true, until); err != nil {
		return fmt.Errorf("封禁失败: %w", err)
	}

	logger.L().Infof("User %d banned by %d, duration=%v", targetID, bannedBy, duration)
	return nil
}

// UnbanUser 解除封禁
func (s *UserServiceImpl) UnbanUser(ctx context.Context, targetID int64) error {
	if err := s.userRepo.SetBanned(ctx, targetID, false, nil); err != nil {
		return fmt.Errorf("解封失败: %w", err)
	}

	logger.L().Infof("User %d unbanned", targetID)
	return nil
}
