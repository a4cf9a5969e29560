package shop

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// PlaceOrder 创建订单
// 请求体原样转发给后端，成功后返回订单与支付跳转地址
func (h *Handler) PlaceOrder(c *gin.Context) {
	sessionID, state, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	visitor, err := h.Store.LoadVisitor(sessionID)
	if err != nil {
		respondBackendError(c, err)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(payload) {
		response.BadRequest(c, "error.order_invalid")
		return
	}

	result, err := h.CheckoutService.PlaceOrder(c.Request.Context(), sessionID, state.CartIdentity(), visitor.Token, payload)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.Success(c, gin.H{
		"order":       result.Order,
		"payment_url": result.PaymentURL,
	})
}

// ListOrders 查询订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	_, visitor, ok := h.sessionVisitor(c)
	if !ok {
		return
	}
	if !visitor.HasValidUser() {
		response.Unauthorized(c, "error.unauthorized")
		return
	}
	raw, err := h.CheckoutService.ListOrders(c.Request.Context(), visitor.Token, c.Request.URL.Query())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// GetOrder 查询订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	_, visitor, ok := h.sessionVisitor(c)
	if !ok {
		return
	}
	if !visitor.HasValidUser() {
		response.Unauthorized(c, "error.unauthorized")
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	raw, err := h.CheckoutService.GetOrder(c.Request.Context(), visitor.Token, orderID)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "error.order_id_invalid")
		return 0, false
	}
	return uint(id), true
}
