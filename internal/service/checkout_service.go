package service

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/cart"
	"github.com/cakery-next/internal/logger"
)

// CheckoutService 结算服务
// 订单与支付完全由后端处理，这里在下单成功后收敛本地购物车状态
type CheckoutService struct {
	api  *backend.Client
	cart *cart.Synchronizer
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(api *backend.Client, sync *cart.Synchronizer) *CheckoutService {
	return &CheckoutService{api: api, cart: sync}
}

// PlaceOrder 创建订单并返回支付跳转地址
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, ident backend.CartIdentity, token string, payload json.RawMessage) (*backend.CheckoutResult, error) {
	if len(payload) == 0 {
		return nil, ErrOrderInvalid
	}
	if !ident.Active() {
		return nil, cart.ErrIdentityRequired
	}

	result, err := s.api.CreateOrder(ctx, ident, token, payload)
	if err != nil {
		return nil, err
	}

	// 后端下单后清空服务端购物车，这里回读一次让本地快照立即跟上
	if _, err := s.cart.Refetch(ctx, sessionID, ident); err != nil {
		logger.Warnw("checkout_cart_refetch_failed", "session_id", sessionID, "error", err)
	}
	return result, nil
}

// ListOrders 查询订单列表
func (s *CheckoutService) ListOrders(ctx context.Context, token string, query url.Values) (json.RawMessage, error) {
	return s.api.ListOrders(ctx, token, query)
}

// GetOrder 查询订单详情
func (s *CheckoutService) GetOrder(ctx context.Context, token string, orderID uint) (json.RawMessage, error) {
	return s.api.GetOrder(ctx, token, orderID)
}
