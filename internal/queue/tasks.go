package queue

import (
	"encoding/json"

	"github.com/cakery-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskInvoiceGenerate 发票生成任务
	TaskInvoiceGenerate = constants.TaskInvoiceGenerate
)

// InvoiceGeneratePayload 发票生成任务载荷
type InvoiceGeneratePayload struct {
	SessionID string `json:"session_id"`
	OrderID   uint   `json:"order_id"`
}

// NewInvoiceGenerateTask 创建发票生成任务
func NewInvoiceGenerateTask(payload InvoiceGeneratePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceGenerate, body), nil
}
