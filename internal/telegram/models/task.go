package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 任务模式常量
const (
	ModeReactive = "reactive" // 实时转发：源频道每条新消息到达即转发
	ModeRanged   = "ranged"   // 区间回放：按固定节奏重放 [start_id, end_id] 区间
)

// ForwardTask 转发任务
// 一条任务描述一个 源频道 → 目标频道 的转发关系。
// mode 决定任务走实时路径还是区间回放路径，二者互斥。
type ForwardTask struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID               int64              `bson:"owner_id"`                 // 创建任务的用户
	SourceChannelID       int64              `bson:"source_channel_id"`        // 源频道
	TargetChannelID       int64              `bson:"target_channel_id"`        // 目标频道
	Mode                  string             `bson:"mode"`                     // reactive / ranged，创建后不可变
	CustomCaption         string             `bson:"custom_caption,omitempty"` // 自定义附加文案
	RemoveOriginalCaption bool               `bson:"remove_original_caption"`  // 是否丢弃原始文案
	IsActive              bool               `bson:"is_active"`                // 是否执行中

	// reactive 专用
	LastProcessedID int64 `bson:"last_processed_id,omitempty"` // 最近一次成功转发的源消息 ID（仅记录用）

	// ranged 专用
	StartID         int64 `bson:"start_id,omitempty"`
	EndID           int64 `bson:"end_id,omitempty"`
	CurrentID       int64 `bson:"current_id,omitempty"` // 游标：下一个待尝试的消息 ID
	StepN           int64 `bson:"step_n,omitempty"`     // 每次前进的步长，>= 1
	IntervalSeconds int   `bson:"interval_seconds,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// IsRanged 是否为区间回放任务
func (t *ForwardTask) IsRanged() bool {
	return t.Mode == ModeRanged
}

// IsReactive 是否为实时转发任务
func (t *ForwardTask) IsReactive() bool {
	return t.Mode == ModeReactive
}

// Completed 区间回放任务的游标是否已越过终点
// 终态任务必须保持 is_active = false。
func (t *ForwardTask) Completed() bool {
	return t.IsRanged() && t.CurrentID > t.EndID
}

// Interval 返回任务的调度间隔
func (t *ForwardTask) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// HexID 返回任务 ID 的十六进制字符串形式
func (t *ForwardTask) HexID() string {
	return t.ID.Hex()
}
