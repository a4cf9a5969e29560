package shop

import (
	"strconv"

	"github.com/cakery-next/internal/http/response"
	"github.com/cakery-next/internal/models"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 新增购物车项请求
type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	SizeID    uint `json:"size_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func cartPayload(snap *models.CartSnapshot) gin.H {
	return gin.H{
		"items":      snap.Items,
		"count":      snap.Count,
		"total":      snap.Total,
		"version":    snap.Version,
		"fetched_at": snap.FetchedAt,
	}
}

// GetCart 获取购物车快照
func (h *Handler) GetCart(c *gin.Context) {
	sessionID, state, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	snap, err := h.CartSync.Fetch(c.Request.Context(), sessionID, state.CartIdentity())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.Success(c, cartPayload(snap))
}

// AddCartItem 加入购物车
func (h *Handler) AddCartItem(c *gin.Context) {
	sessionID, state, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "error.bad_request")
		return
	}
	snap, err := h.CartSync.AddItem(c.Request.Context(), sessionID, state.CartIdentity(), req.ProductID, req.SizeID, req.Quantity)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.Success(c, cartPayload(snap))
}

// UpdateCartItem 修改购物车项数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	sessionID, state, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "error.bad_request")
		return
	}
	snap, err := h.CartSync.UpdateItemQuantity(c.Request.Context(), sessionID, state.CartIdentity(), itemID, req.Quantity)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.Success(c, cartPayload(snap))
}

// RemoveCartItem 移除购物车项
func (h *Handler) RemoveCartItem(c *gin.Context) {
	sessionID, state, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	itemID, ok := parseItemID(c)
	if !ok {
		return
	}
	snap, err := h.CartSync.RemoveItem(c.Request.Context(), sessionID, state.CartIdentity(), itemID)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.Success(c, cartPayload(snap))
}

func parseItemID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "error.cart_item_id_invalid")
		return 0, false
	}
	return uint(id), true
}
