package shop

import (
	"strconv"

	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GenerateInvoiceRequest 发票生成请求
type GenerateInvoiceRequest struct {
	OrderID uint `json:"order_id" binding:"required"`
}

// ListInvoices 查询发票列表
func (h *Handler) ListInvoices(c *gin.Context) {
	_, visitor, ok := h.sessionVisitor(c)
	if !ok {
		return
	}
	if !visitor.HasValidUser() {
		response.Unauthorized(c, "error.unauthorized")
		return
	}
	raw, err := h.InvoiceService.List(c.Request.Context(), visitor.Token, c.Request.URL.Query())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// GetInvoice 查询发票详情
func (h *Handler) GetInvoice(c *gin.Context) {
	_, visitor, ok := h.sessionVisitor(c)
	if !ok {
		return
	}
	if !visitor.HasValidUser() {
		response.Unauthorized(c, "error.unauthorized")
		return
	}
	raw := c.Param("id")
	invoiceID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || invoiceID == 0 {
		response.BadRequest(c, "error.invoice_id_invalid")
		return
	}
	payload, err2 := h.InvoiceService.Get(c.Request.Context(), visitor.Token, uint(invoiceID))
	if err2 != nil {
		respondBackendError(c, err2)
		return
	}
	response.SuccessRaw(c, payload)
}

// GenerateInvoice 请求为订单生成发票
// 排队成功即返回，生成完毕由事件流通知
func (h *Handler) GenerateInvoice(c *gin.Context) {
	sessionID, visitor, ok := h.sessionVisitor(c)
	if !ok {
		return
	}
	var req GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "error.bad_request")
		return
	}
	if err := h.InvoiceService.RequestGeneration(c.Request.Context(), sessionID, visitor.Token, req.OrderID); err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessWithMsg(c, "invoice_queued", gin.H{"order_id": req.OrderID})
}
