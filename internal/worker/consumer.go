package worker

import (
	"context"
	"encoding/json"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/provider"
	"github.com/cakery-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskInvoiceGenerate, c.handleInvoiceGenerate)
}

// handleInvoiceGenerate 调用后端生成发票并通知会话
// 传输类失败返回错误交给队列重试；业务性拒绝直接丢弃任务
func (c *Consumer) handleInvoiceGenerate(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_invoice_generate_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.InvoiceGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_invoice_generate_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 || payload.SessionID == "" {
		logger.Debugw("worker_invoice_generate_skip_invalid_payload",
			"order_id", payload.OrderID,
			"session_id", payload.SessionID,
		)
		return nil
	}

	visitor, err := c.Store.LoadVisitor(payload.SessionID)
	if err != nil {
		logger.Warnw("worker_invoice_generate_load_visitor_failed", "session_id", payload.SessionID, "error", err)
		return err
	}
	if visitor.Token == "" {
		logger.Debugw("worker_invoice_generate_skip_no_token", "session_id", payload.SessionID)
		return nil
	}

	if err := c.Backend.GenerateInvoice(ctx, visitor.Token, payload.OrderID); err != nil {
		if backend.IsTransient(err) {
			logger.Warnw("worker_invoice_generate_retry", "order_id", payload.OrderID, "error", err)
			return err
		}
		logger.Warnw("worker_invoice_generate_rejected", "order_id", payload.OrderID, "error", err)
		return nil
	}

	c.Store.NotifyInvoiceReady(ctx, payload.SessionID)
	logger.Infow("worker_invoice_generated", "order_id", payload.OrderID, "session_id", payload.SessionID)
	return nil
}
