package admin

import (
	"encoding/json"
	"io"

	"github.com/cakery-next/internal/http/response"

	"github.com/cakery-next/internal/backend"

	"github.com/gin-gonic/gin"
)

// 资源路由形如 /admin/:resource 与 /admin/:resource/:id
// 支持的资源集合由后端接口决定，这里只挡住拼错的路径

func (h *Handler) resource(c *gin.Context) (string, bool) {
	resource := c.Param("resource")
	if !backend.IsAdminResource(resource) {
		response.NotFound(c, "error.admin_resource_unknown")
		return "", false
	}
	return resource, true
}

func (h *Handler) token(c *gin.Context) (string, bool) {
	visitor, ok := h.adminVisitor(c)
	if !ok || visitor.Token == "" {
		response.Unauthorized(c, "error.unauthorized")
		return "", false
	}
	return visitor.Token, true
}

func readJSONBody(c *gin.Context) (json.RawMessage, bool) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(payload) {
		response.BadRequest(c, "error.bad_request")
		return nil, false
	}
	return payload, true
}

// ListResource 查询资源列表
func (h *Handler) ListResource(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}
	token, ok := h.token(c)
	if !ok {
		return
	}
	raw, err := h.Backend.AdminList(c.Request.Context(), token, resource, c.Request.URL.Query())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// GetResource 查询资源详情
func (h *Handler) GetResource(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}
	token, ok := h.token(c)
	if !ok {
		return
	}
	raw, err := h.Backend.AdminGet(c.Request.Context(), token, resource, c.Param("id"))
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// CreateResource 创建资源
func (h *Handler) CreateResource(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}
	token, ok := h.token(c)
	if !ok {
		return
	}
	payload, ok := readJSONBody(c)
	if !ok {
		return
	}
	raw, err := h.Backend.AdminCreate(c.Request.Context(), token, resource, payload)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// UpdateResource 更新资源
func (h *Handler) UpdateResource(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}
	token, ok := h.token(c)
	if !ok {
		return
	}
	payload, ok := readJSONBody(c)
	if !ok {
		return
	}
	raw, err := h.Backend.AdminUpdate(c.Request.Context(), token, resource, c.Param("id"), payload)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// DeleteResource 删除资源
func (h *Handler) DeleteResource(c *gin.Context) {
	resource, ok := h.resource(c)
	if !ok {
		return
	}
	token, ok := h.token(c)
	if !ok {
		return
	}
	if err := h.Backend.AdminDelete(c.Request.Context(), token, resource, c.Param("id")); err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessWithMsg(c, "deleted", nil)
}
