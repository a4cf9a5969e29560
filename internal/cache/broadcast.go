package cache

import (
	"context"
	"encoding/json"

	"github.com/cakery-next/internal/logger"
)

const broadcastChannel = "sync:events"

// SyncEvent 跨实例同步事件（带版本号的快照失效通知）
// Origin 用于丢弃自身发出的回声，Version 用于丢弃过期通知
type SyncEvent struct {
	Origin    string `json:"origin"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Version   uint64 `json:"version"`
}

// PublishSyncEvent 发布同步事件
// Redis 未启用时为空操作（单实例部署无需跨实例广播）
func PublishSyncEvent(ctx context.Context, event SyncEvent) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return Client().Publish(ctx, BuildKey(broadcastChannel), payload).Err()
}

// ListenSyncEvents 订阅同步事件并逐条回调，ctx 取消后返回
func ListenSyncEvents(ctx context.Context, handler func(SyncEvent)) error {
	if !Enabled() || handler == nil {
		<-ctx.Done()
		return nil
	}
	sub := Client().Subscribe(ctx, BuildKey(broadcastChannel))
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event SyncEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warnw("sync_event_decode_failed", "error", err)
				continue
			}
			handler(event)
		}
	}
}
