package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relay_bot/internal/telegram/models"
	"relay_bot/internal/telegram/repository"

	"github.com/go-telegram/bot"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// delivery 记录一次投递的目标与发送参数
type delivery struct {
	ChatID int64
	Plan   SendPlan
}

// notice 记录一次发往用户的通知
type notice struct {
	UserID int64
	Text   string
}

// fakePlatform 内存平台实现，按 频道 ID → 消息 ID 存放可抓取的消息
type fakePlatform struct {
	mu         sync.Mutex
	messages   map[int64]map[int64]*SourceMessage
	fetchErr   map[int64]error // 按消息 ID 注入抓取错误
	deliverErr map[int64]error // 按目标会话注入投递错误
	delivered  []delivery
	notices    []notice
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		messages:   make(map[int64]map[int64]*SourceMessage),
		fetchErr:   make(map[int64]error),
		deliverErr: make(map[int64]error),
	}
}

func (p *fakePlatform) addMessage(msg *SourceMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages[msg.ChatID] == nil {
		p.messages[msg.ChatID] = make(map[int64]*SourceMessage)
	}
	p.messages[msg.ChatID][msg.ID] = msg
}

func (p *fakePlatform) FetchMessage(_ context.Context, channelID, messageID int64) (*SourceMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fetchErr[messageID]; err != nil {
		return nil, err
	}
	msg := p.messages[channelID][messageID]
	if msg == nil {
		return nil, fmt.Errorf("%w: message to forward not found", bot.ErrorBadRequest)
	}
	return msg, nil
}

func (p *fakePlatform) Deliver(_ context.Context, chatID int64, plan SendPlan) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.deliverErr[chatID]; err != nil {
		return err
	}
	p.delivered = append(p.delivered, delivery{ChatID: chatID, Plan: plan})
	return nil
}

func (p *fakePlatform) Notify(_ context.Context, userID int64, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice{UserID: userID, Text: text})
}

func (p *fakePlatform) deliveries() []delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]delivery, len(p.delivered))
	copy(out, p.delivered)
	return out
}

func (p *fakePlatform) notifications() []notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notice, len(p.notices))
	copy(out, p.notices)
	return out
}

// fakeTaskRepo 内存任务仓库
type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]*models.ForwardTask
	cursorErr error // 注入 UpdateCursor 落盘失败
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*models.ForwardTask)}
}

// add 插入任务并返回分配的 ID
func (r *fakeTaskRepo) add(task *models.ForwardTask) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	r.tasks[task.ID.Hex()] = task
	return task.ID.Hex()
}

func (r *fakeTaskRepo) Create(_ context.Context, task *models.ForwardTask) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = primitive.NewObjectID()
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	r.tasks[task.ID.Hex()] = task
	return task.ID.Hex(), nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*models.ForwardTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *fakeTaskRepo) ListByOwner(_ context.Context, ownerID int64) ([]*models.ForwardTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ForwardTask
	for _, task := range r.tasks {
		if task.OwnerID == ownerID {
			clone := *task
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) ListActive(_ context.Context, mode string) ([]*models.ForwardTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ForwardTask
	for _, task := range r.tasks {
		if task.IsActive && (mode == "" || task.Mode == mode) {
			clone := *task
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeTaskRepo) UpdateCursor(_ context.Context, id string, newCurrentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursorErr != nil {
		return r.cursorErr
	}
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.CurrentID = newCurrentID
	return nil
}

func (r *fakeTaskRepo) UpdateLastProcessed(_ context.Context, id string, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.LastProcessedID = messageID
	return nil
}

func (r *fakeTaskRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.IsActive = active
	return nil
}

func (r *fakeTaskRepo) UpdateCaption(_ context.Context, id string, caption string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.CustomCaption = caption
	return nil
}

func (r *fakeTaskRepo) SetRemoveCaption(_ context.Context, id string, remove bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.RemoveOriginalCaption = remove
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) EnsureIndexes(_ context.Context) error { return nil }

// get 读取任务当前快照，不存在时返回 nil
func (r *fakeTaskRepo) get(id string) *models.ForwardTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil
	}
	clone := *task
	return &clone
}
