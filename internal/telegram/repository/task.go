package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay_bot/internal/telegram/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrTaskNotFound 任务不存在（已删除或 ID 非法）
var ErrTaskNotFound = errors.New("task not found")

// MongoTaskRepository 转发任务仓储的 MongoDB 实现
type MongoTaskRepository struct {
	collection *mongo.Collection
}

// NewTaskRepository 创建转发任务仓储实例
func NewTaskRepository(db *mongo.Database) TaskRepository {
	return &MongoTaskRepository{
		collection: db.Collection("tasks"),
	}
}

// Create 创建任务，返回 store 分配的任务 ID
func (r *MongoTaskRepository) Create(ctx context.Context, task *models.ForwardTask) (string, error) {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	task.ID = oid
	return oid.Hex(), nil
}

// GetByID 根据任务 ID 获取任务
func (r *MongoTaskRepository) GetByID(ctx context.Context, id string) (*models.ForwardTask, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrTaskNotFound, id)
	}

	var task models.ForwardTask
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return &task, nil
}

// ListByOwner 列出某用户的全部任务
func (r *MongoTaskRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.ForwardTask, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by owner: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.ForwardTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// ListActive 列出所有活跃任务，mode 为空时不过滤模式
func (r *MongoTaskRepository) ListActive(ctx context.Context, mode string) ([]*models.ForwardTask, error) {
	filter := bson.M{"is_active": true}
	if mode != "" {
		filter["mode"] = mode
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*models.ForwardTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// UpdateCursor 更新区间回放任务的游标
func (r *MongoTaskRepository) UpdateCursor(ctx context.Context, id string, newCurrentID int64) error {
	return r.updateField(ctx, id, bson.M{"current_id": newCurrentID})
}

// UpdateLastProcessed 更新实时任务最近转发的消息 ID
func (r *MongoTaskRepository) UpdateLastProcessed(ctx context.Context, id string, messageID int64) error {
	return r.updateField(ctx, id, bson.M{"last_processed_id": messageID})
}

// SetActive 更新任务的激活状态
func (r *MongoTaskRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateField(ctx, id, bson.M{"is_active": active})
}

// UpdateCaption 更新自定义文案
func (r *MongoTaskRepository) UpdateCaption(ctx context.Context, id string, caption string) error {
	return r.updateField(ctx, id, bson.M{"custom_caption": caption})
}

// SetRemoveCaption 更新是否丢弃原始文案
func (r *MongoTaskRepository) SetRemoveCaption(ctx context.Context, id string, remove bool) error {
	return r.updateField(ctx, id, bson.M{"remove_original_caption": remove})
}

// Delete 删除任务
func (r *MongoTaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid id %q", ErrTaskNotFound, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// updateField 单字段更新，同时刷新 updated_at
func (r *MongoTaskRepository) updateField(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid id %q", ErrTaskNotFound, id)
	}

	fields["updated_at"] = time.Now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return nil
}

// EnsureIndexes 确保索引存在
func (r *MongoTaskRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// 按用户列出任务
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		},
		// 实时路径：按源频道查活跃任务
		{
			Keys: bson.D{
				{Key: "is_active", Value: 1},
				{Key: "mode", Value: 1},
				{Key: "source_channel_id", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes for tasks: %w", err)
	}
	return nil
}
