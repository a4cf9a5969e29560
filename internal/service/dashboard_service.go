package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/cache"
)

const dashboardCacheKey = "admin:dashboard:summary"

// DashboardService 后台看板汇总服务
// 汇总由后端计算，这里做两级缓存：进程内存加 Redis，由后台循环定期刷新
type DashboardService struct {
	api      *backend.Client
	cacheTTL time.Duration

	mu       sync.RWMutex
	cached   json.RawMessage
	cachedAt time.Time
}

// NewDashboardService 创建看板服务
func NewDashboardService(api *backend.Client, refreshInterval time.Duration) *DashboardService {
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Second
	}
	return &DashboardService{
		api:      api,
		cacheTTL: refreshInterval * 2,
	}
}

// Summary 获取看板汇总，优先命中缓存
func (s *DashboardService) Summary(ctx context.Context) (json.RawMessage, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.cachedAt) <= s.cacheTTL {
		cached := s.cached
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	var fromRedis json.RawMessage
	if hit, err := cache.GetJSON(ctx, dashboardCacheKey, &fromRedis); err == nil && hit {
		s.remember(fromRedis)
		return fromRedis, nil
	}
	return s.Refresh(ctx)
}

// Refresh 向后端拉取最新汇总并回填缓存
func (s *DashboardService) Refresh(ctx context.Context) (json.RawMessage, error) {
	raw, err := s.api.AdminSummary(ctx)
	if err != nil {
		// 拉取失败时容忍过期的内存缓存，看板允许短暂滞后
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}
	s.remember(raw)
	if err := cache.SetJSON(ctx, dashboardCacheKey, raw, s.cacheTTL); err != nil {
		return raw, nil
	}
	return raw, nil
}

func (s *DashboardService) remember(raw json.RawMessage) {
	s.mu.Lock()
	s.cached = raw
	s.cachedAt = time.Now()
	s.mu.Unlock()
}
