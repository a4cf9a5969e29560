package cart

import (
	"context"

	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/models"
)

// speculation 一次乐观更新的回滚凭据，持有预演前的完整快照
type speculation struct {
	sync      *Synchronizer
	sessionID string
	prev      *models.CartSnapshot
}

// speculate 对本地快照执行预演变更并立即落库
// 目标项必须存在于本地快照中；返回变更前的项用于错误改写
func (s *Synchronizer) speculate(ctx context.Context, sessionID string, itemID uint, apply func(*models.CartSnapshot)) (*speculation, models.CartSnapshotItem, error) {
	snap, err := s.store.LoadSnapshot(sessionID)
	if err != nil {
		return nil, models.CartSnapshotItem{}, err
	}
	if snap == nil {
		return nil, models.CartSnapshotItem{}, ErrItemNotFound
	}
	item, ok := snap.FindItem(itemID)
	if !ok {
		return nil, models.CartSnapshotItem{}, ErrItemNotFound
	}

	prev := snap.Clone()
	next := snap.Clone()
	apply(next)
	next.RecomputeLocal()
	if err := s.store.SaveSnapshot(ctx, next); err != nil {
		return nil, models.CartSnapshotItem{}, err
	}
	return &speculation{sync: s, sessionID: sessionID, prev: prev}, item, nil
}

// revert 恢复预演前的快照
// 以新版本号重写旧内容，保证订阅方看到回滚而非忽略为过期事件
func (sp *speculation) revert(ctx context.Context) {
	restored := sp.prev.Clone()
	restored.ID = 0
	restored.Version = 0
	if err := sp.sync.store.SaveSnapshot(ctx, restored); err != nil {
		logger.Errorw("cart_speculation_revert_failed",
			"session_id", sp.sessionID,
			"error", err,
		)
	}
}
