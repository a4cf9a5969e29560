package shop

import (
	"github.com/cakery-next/internal/http/handlers/shared"
	"github.com/cakery-next/internal/identity"
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 店面接口处理器入口
// 说明：该处理器仅用于顾客侧 API，管理端见 admin 包。
type Handler struct {
	*provider.Container
}

// New 创建店面处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// sessionVisitor 读取会话标识与持久的访客记录
func (h *Handler) sessionVisitor(c *gin.Context) (string, *models.VisitorState, bool) {
	sessionID, ok := shared.SessionID(c)
	if !ok {
		return "", nil, false
	}
	visitor, err := h.Store.LoadVisitor(sessionID)
	if err != nil {
		respondBackendError(c, err)
		return "", nil, false
	}
	return sessionID, visitor, true
}

// resolveIdentity 解析当前会话的生效身份
func (h *Handler) resolveIdentity(c *gin.Context) (string, identity.State, bool) {
	sessionID, ok := shared.SessionID(c)
	if !ok {
		return "", identity.None(), false
	}
	state, err := h.Resolver.Resolve(c.Request.Context(), sessionID)
	if err != nil {
		respondBackendError(c, err)
		return "", identity.None(), false
	}
	return sessionID, state, true
}
