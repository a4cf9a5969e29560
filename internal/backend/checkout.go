package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// CheckoutResult 下单结果：订单原文与第三方支付跳转地址
// 支付结算完全由后端与支付网关完成，这里只转发跳转地址
type CheckoutResult struct {
	Order      json.RawMessage `json:"order"`
	PaymentURL string          `json:"paymentUrl"`
}

// CreateOrder 创建订单
func (c *Client) CreateOrder(ctx context.Context, ident CartIdentity, token string, payload json.RawMessage) (*CheckoutResult, error) {
	var result CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/orders", ident.query(), payload, token, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListOrders 查询订单列表
func (c *Client) ListOrders(ctx context.Context, token string, query url.Values) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/orders", query, nil, token)
}

// GetOrder 查询订单详情
func (c *Client) GetOrder(ctx context.Context, token string, orderID uint) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/orders/"+strconv.FormatUint(uint64(orderID), 10), nil, nil, token)
}
