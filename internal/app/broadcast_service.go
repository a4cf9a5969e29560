package app

import (
	"context"
	"errors"

	"github.com/cakery-next/internal/store"
)

// BroadcastService 跨实例同步事件监听服务
// 把 Redis 广播的快照变更转发给本实例的事件流订阅者
type BroadcastService struct {
	store *store.Store
}

// NewBroadcastService 创建广播监听服务
func NewBroadcastService(st *store.Store) *BroadcastService {
	return &BroadcastService{store: st}
}

// Name 服务名称
func (s *BroadcastService) Name() string {
	return "broadcast"
}

// Start 启动监听，阻塞直到 ctx 取消
func (s *BroadcastService) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return errors.New("store not initialized")
	}
	return s.store.Run(ctx)
}

// Stop 停止服务（监听随 ctx 取消退出）
func (s *BroadcastService) Stop(ctx context.Context) error {
	return nil
}
