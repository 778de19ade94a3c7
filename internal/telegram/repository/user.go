package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay_bot/internal/telegram/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository 用户仓储的 MongoDB 实现
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *mongo.Database) UserRepository {
	return &MongoUserRepository{
		collection: db.Collection("users"),
	}
}

// CreateOrUpdate 创建或更新用户
func (r *MongoUserRepository) CreateOrUpdate(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now

	filter := bson.M{"telegram_id": user.TelegramID}

	setFields := bson.M{
		"username":       user.Username,
		"first_name":     user.FirstName,
		"last_name":      user.LastName,
		"language_code":  user.LanguageCode,
		"updated_at":     user.UpdatedAt,
		"last_active_at": user.LastActiveAt,
	}

	// 如果调用方指定了角色（如初始化 owner），则更新角色
	if user.Role != "" {
		setFields["role"] = user.Role
	}

	update := bson.M{
		"$set": setFields,
		"$setOnInsert": bson.M{
			"role":       models.RoleUser, // 默认角色为普通用户
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to create or update user: %w", err)
	}

	return nil
}

// GetByTelegramID 根据 Telegram ID 获取用户
func (r *MongoUserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"telegram_id": telegramID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %d", telegramID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateLastActive 更新用户最后活跃时间
func (r *MongoUserRepository) UpdateLastActive(ctx context.Context, telegramID int64) error {
	filter := bson.M{"telegram_id": telegramID}
	update := bson.M{
		"$set": bson.M{
			"last_active_at": time.Now(),
		},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to update last active: %w", err)
	}
	return nil
}

// SetBanned 更新用户封禁状态
func (r *MongoUserRepository) SetBanned(ctx context.Context, telegramID int64, banned bool, until *time.Time) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"is_banned":  banned,
			"updated_at": now,
		},
	}
	if banned && until != nil {
		update["$set"].(bson.M)["banned_until"] = *until
	} else {
		update["$unset"] = bson.M{"banned_until": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"telegram_id": telegramID}, update)
	if err != nil {
		return fmt.Errorf("failed to update ban status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found: %d", telegramID)
	}
	return nil
}

// EnsureIndexes 确保索引存在
func (r *MongoUserRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "telegram_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes for users: %w", err)
	}
	return nil
}
