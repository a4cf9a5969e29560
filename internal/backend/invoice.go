package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// ListInvoices 查询发票列表
func (c *Client) ListInvoices(ctx context.Context, token string, query url.Values) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/invoices", query, nil, token)
}

// GetInvoice 查询发票详情
func (c *Client) GetInvoice(ctx context.Context, token string, invoiceID uint) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/invoices/"+strconv.FormatUint(uint64(invoiceID), 10), nil, nil, token)
}

// GenerateInvoice 请求为订单生成发票
func (c *Client) GenerateInvoice(ctx context.Context, token string, orderID uint) error {
	body := map[string]uint{"orderId": orderID}
	return c.doMutation(ctx, http.MethodPost, "/invoices/generate", nil, body, token)
}

// RecentInvoices 查询新近出具的发票（后台通知轮询用）
func (c *Client) RecentInvoices(ctx context.Context, sinceUnix int64) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("since", strconv.FormatInt(sinceUnix, 10))
	return c.doRaw(ctx, http.MethodGet, "/invoices/recent", values, nil, c.serviceToken)
}
