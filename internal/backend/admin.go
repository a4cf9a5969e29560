package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// 管理端接口为薄透传：资源名与查询原样转发，鉴权由路由层的角色门控完成

var adminResources = map[string]bool{
	"products": true,
	"orders":   true,
	"users":    true,
}

// IsAdminResource 判断是否为受支持的管理资源
func IsAdminResource(resource string) bool {
	return adminResources[strings.ToLower(strings.TrimSpace(resource))]
}

// AdminSummary 查询后台看板汇总
func (c *Client) AdminSummary(ctx context.Context) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/admin/dashboard/summary", nil, nil, c.serviceToken)
}

// AdminList 查询管理资源列表
func (c *Client) AdminList(ctx context.Context, token, resource string, query url.Values) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/admin/"+resource, query, nil, token)
}

// AdminGet 查询管理资源详情
func (c *Client) AdminGet(ctx context.Context, token, resource, id string) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodGet, "/admin/"+resource+"/"+url.PathEscape(id), nil, nil, token)
}

// AdminCreate 创建管理资源
func (c *Client) AdminCreate(ctx context.Context, token, resource string, payload json.RawMessage) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodPost, "/admin/"+resource, nil, payload, token)
}

// AdminUpdate 更新管理资源
func (c *Client) AdminUpdate(ctx context.Context, token, resource, id string, payload json.RawMessage) (json.RawMessage, error) {
	return c.doRaw(ctx, http.MethodPut, "/admin/"+resource+"/"+url.PathEscape(id), nil, payload, token)
}

// AdminDelete 删除管理资源
func (c *Client) AdminDelete(ctx context.Context, token, resource, id string) error {
	return c.doMutation(ctx, http.MethodDelete, "/admin/"+resource+"/"+url.PathEscape(id), nil, nil, token)
}
