package admin

import (
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 管理端接口处理器入口
// 管理端是后端资源的薄壳：列表/详情/增删改全部透传，后端保留最终鉴权
type Handler struct {
	*provider.Container
}

// New 创建管理端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// adminVisitor 读取当前管理员的访客记录（角色门控在中间件完成）
func (h *Handler) adminVisitor(c *gin.Context) (*models.VisitorState, bool) {
	value, exists := c.Get(adminVisitorKey)
	if !exists {
		return nil, false
	}
	visitor, ok := value.(*models.VisitorState)
	return visitor, ok && visitor != nil
}

const adminVisitorKey = "admin_visitor"
