package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// 商品目录接口均为薄透传，网关不建模后端的目录结构

// Products 查询商品列表
func (c *Client) Products(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/products", query, nil, "")
}

// ProductBySlug 查询商品详情
func (c *Client) ProductBySlug(ctx context.Context, slug string) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/products/"+url.PathEscape(slug), nil, nil, "")
}

// Categories 查询分类列表
func (c *Client) Categories(ctx context.Context) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/categories", nil, nil, "")
}
