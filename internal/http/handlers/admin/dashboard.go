package admin

import (
	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Dashboard 查询看板汇总
// 读取缓存副本，后台循环定期刷新
func (h *Handler) Dashboard(c *gin.Context) {
	raw, err := h.DashboardService.Summary(c.Request.Context())
	if err != nil {
		respondBackendError(c, err)
		return
	}
	response.SuccessRaw(c, raw)
}
