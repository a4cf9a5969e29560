package service

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/queue"
	"github.com/cakery-next/internal/store"
)

// InvoiceService 发票服务
// 生成走异步队列削峰；队列未启用时退化为同步调用
type InvoiceService struct {
	api   *backend.Client
	queue *queue.Client
	store *store.Store
}

// NewInvoiceService 创建发票服务
func NewInvoiceService(api *backend.Client, queueClient *queue.Client, st *store.Store) *InvoiceService {
	return &InvoiceService{api: api, queue: queueClient, store: st}
}

// List 查询发票列表
func (s *InvoiceService) List(ctx context.Context, token string, query url.Values) (json.RawMessage, error) {
	return s.api.ListInvoices(ctx, token, query)
}

// Get 查询发票详情
func (s *InvoiceService) Get(ctx context.Context, token string, invoiceID uint) (json.RawMessage, error) {
	return s.api.GetInvoice(ctx, token, invoiceID)
}

// RequestGeneration 请求为订单生成发票
func (s *InvoiceService) RequestGeneration(ctx context.Context, sessionID, token string, orderID uint) error {
	if token == "" {
		return ErrLoginRequired
	}
	if s.queue.Enabled() {
		return s.queue.EnqueueInvoiceGenerate(queue.InvoiceGeneratePayload{
			SessionID: sessionID,
			OrderID:   orderID,
		})
	}

	if err := s.api.GenerateInvoice(ctx, token, orderID); err != nil {
		return err
	}
	logger.Infow("invoice_generated_inline", "session_id", sessionID, "order_id", orderID)
	s.store.NotifyInvoiceReady(ctx, sessionID)
	return nil
}
