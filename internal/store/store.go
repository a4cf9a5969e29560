package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cakery-next/internal/cache"
	"github.com/cakery-next/internal/constants"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event 本地状态变更事件
type Event struct {
	SessionID string
	Kind      string
	Version   uint64
}

// Store 可观察的版本化快照存储
// 浏览器本地存储的服务端化：身份记录与购物车快照持久于本地库，
// 变更通过进程内订阅与 Redis 广播（带版本号）传播，替代 storage 事件监听
type Store struct {
	db         *gorm.DB
	instanceID string

	mu      sync.Mutex
	subs    map[uint64]chan Event
	nextSub uint64
	seen    map[string]uint64 // session_id -> 已见快照版本
}

// New 创建存储
func New(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		instanceID: uuid.NewString(),
		subs:       make(map[uint64]chan Event),
		seen:       make(map[string]uint64),
	}
}

// LoadVisitor 读取访客会话状态；不存在时返回未持久化的空记录
func (s *Store) LoadVisitor(sessionID string) (*models.VisitorState, error) {
	var state models.VisitorState
	err := s.db.Where("session_id = ?", sessionID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.VisitorState{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveVisitor 保存访客会话状态
func (s *Store) SaveVisitor(state *models.VisitorState) error {
	if state == nil || state.SessionID == "" {
		return errors.New("visitor state invalid")
	}
	if state.ID == 0 {
		var existing models.VisitorState
		err := s.db.Where("session_id = ?", state.SessionID).First(&existing).Error
		if err == nil {
			state.ID = existing.ID
			state.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return s.db.Save(state).Error
}

// ClearVisitor 清除会话的身份与购物车缓存，并广播重置信号
func (s *Store) ClearVisitor(ctx context.Context, sessionID string) error {
	if err := s.db.Where("session_id = ?", sessionID).Delete(&models.VisitorState{}).Error; err != nil {
		return err
	}
	empty := models.EmptyCartSnapshot(sessionID)
	if err := s.SaveSnapshot(ctx, empty); err != nil {
		return err
	}
	s.publish(ctx, Event{SessionID: sessionID, Kind: constants.EventIdentityReset, Version: empty.Version})
	return nil
}

// SessionsForUser 查找用户当前登录的会话（发票通知投递用）
func (s *Store) SessionsForUser(userID uint) ([]string, error) {
	var sessions []string
	err := s.db.Model(&models.VisitorState{}).
		Where("user_id = ?", userID).
		Pluck("session_id", &sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// LoadSnapshot 读取购物车快照；不存在时返回 nil
func (s *Store) LoadSnapshot(sessionID string) (*models.CartSnapshot, error) {
	var snap models.CartSnapshot
	err := s.db.Where("session_id = ?", sessionID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Normalize()
	return &snap, nil
}

// SaveSnapshot 保存购物车快照：递增版本号、持久化并发布变更事件
func (s *Store) SaveSnapshot(ctx context.Context, snap *models.CartSnapshot) error {
	if snap == nil || snap.SessionID == "" {
		return errors.New("cart snapshot invalid")
	}
	snap.Normalize()

	var existing models.CartSnapshot
	err := s.db.Where("session_id = ?", snap.SessionID).First(&existing).Error
	switch {
	case err == nil:
		snap.ID = existing.ID
		snap.Version = existing.Version + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
		snap.ID = 0
		snap.Version = 1
	default:
		return err
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	if err := s.db.Save(snap).Error; err != nil {
		return err
	}

	s.markSeen(snap.SessionID, snap.Version)
	s.publish(ctx, Event{SessionID: snap.SessionID, Kind: constants.EventSnapshotUpdated, Version: snap.Version})
	return nil
}

// Subscribe 订阅状态变更事件，返回取消函数
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSub++
	id := s.nextSub
	ch := make(chan Event, 16)
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Run 消费跨实例广播，过滤回声与过期版本后转发给本地订阅者
func (s *Store) Run(ctx context.Context) error {
	return cache.ListenSyncEvents(ctx, func(event cache.SyncEvent) {
		if event.Origin == s.instanceID {
			return
		}
		if event.Kind == constants.EventSnapshotUpdated && !s.advanceSeen(event.SessionID, event.Version) {
			logger.Debugw("sync_event_stale_dropped",
				"session_id", event.SessionID,
				"version", event.Version,
			)
			return
		}
		s.notify(Event{SessionID: event.SessionID, Kind: event.Kind, Version: event.Version})
	})
}

// NotifyInvoiceReady 发布发票就绪通知（后台轮询器使用）
func (s *Store) NotifyInvoiceReady(ctx context.Context, sessionID string) {
	s.publish(ctx, Event{SessionID: sessionID, Kind: constants.EventInvoiceReady})
}

func (s *Store) publish(ctx context.Context, event Event) {
	s.notify(event)
	err := cache.PublishSyncEvent(ctx, cache.SyncEvent{
		Origin:    s.instanceID,
		SessionID: event.SessionID,
		Kind:      event.Kind,
		Version:   event.Version,
	})
	if err != nil {
		logger.Warnw("sync_event_publish_failed", "error", err, "kind", event.Kind)
	}
}

func (s *Store) notify(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
			// 订阅者消费过慢时丢弃事件，快照本身可随时重新读取
		}
	}
}

func (s *Store) markSeen(sessionID string, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.seen[sessionID] {
		s.seen[sessionID] = version
	}
}

// advanceSeen 仅当版本号前进时返回 true
func (s *Store) advanceSeen(sessionID string, version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version <= s.seen[sessionID] {
		return false
	}
	s.seen[sessionID] = version
	return true
}
