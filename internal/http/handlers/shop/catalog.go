package shop

import (
	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 商品目录为薄透传：搜索、筛选与分页语义全部由后端定义

// ListProducts 查询商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	raw, err := h.Backend.Products(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// GetProduct 按 slug 查询商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		response.BadRequest(c, "error.bad_request")
		return
	}
	raw, err := h.Backend.ProductBySlug(c.Request.Context(), slug)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}

// ListCategories 查询分类列表
func (h *Handler) ListCategories(c *gin.Context) {
	raw, err := h.Backend.Categories(c.Request.Context())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}
