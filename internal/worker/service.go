package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cakery-next/internal/config"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Service 异步队列服务
// 除队列消费外还承担两类后台轮询：看板缓存刷新与发票就绪探测
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer

	dashboardInterval time.Duration
	invoiceInterval   time.Duration
	invoiceSince      time.Time
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, polling config.PollingConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:              "worker",
		server:            server,
		mux:               mux,
		consumer:          consumer,
		dashboardInterval: intervalOrDefault(polling.DashboardSeconds, 30*time.Second),
		invoiceInterval:   intervalOrDefault(polling.InvoiceSeconds, 30*time.Second),
		invoiceSince:      time.Now(),
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	go s.runDashboardRefreshLoop(ctx)
	go s.runInvoiceNotifyLoop(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runDashboardRefreshLoop 定期刷新看板缓存，管理端读取时无需等待后端
func (s *Service) runDashboardRefreshLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.DashboardService == nil {
		return
	}
	runOnce := func() {
		if _, err := s.consumer.DashboardService.Refresh(ctx); err != nil {
			logger.Warnw("worker_dashboard_refresh_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.dashboardInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// recentInvoice 后端新近发票的最小投影
type recentInvoice struct {
	ID     uint `json:"id"`
	UserID uint `json:"userId"`
}

// runInvoiceNotifyLoop 轮询新近出具的发票并通知对应在线会话
func (s *Service) runInvoiceNotifyLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.Backend == nil {
		return
	}
	ticker := time.NewTicker(s.invoiceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollRecentInvoices(ctx)
		}
	}
}

func (s *Service) pollRecentInvoices(ctx context.Context) {
	since := s.invoiceSince
	raw, err := s.consumer.Backend.RecentInvoices(ctx, since.Unix())
	if err != nil {
		logger.Warnw("worker_invoice_poll_failed", "error", err)
		return
	}
	s.invoiceSince = time.Now()

	var invoices []recentInvoice
	if err := json.Unmarshal(raw, &invoices); err != nil {
		logger.Warnw("worker_invoice_poll_decode_failed", "error", err)
		return
	}
	for _, invoice := range invoices {
		if invoice.UserID == 0 {
			continue
		}
		sessions, err := s.consumer.Store.SessionsForUser(invoice.UserID)
		if err != nil {
			logger.Warnw("worker_invoice_session_lookup_failed", "user_id", invoice.UserID, "error", err)
			continue
		}
		for _, sessionID := range sessions {
			s.consumer.Store.NotifyInvoiceReady(ctx, sessionID)
		}
	}
}

func intervalOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
