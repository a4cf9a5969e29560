package shop

import (
	"io"

	"github.com/cakery-next/internal/http/handlers/shared"
	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SessionUser 会话内的用户摘要
type SessionUser struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// GetSession 查询当前会话的身份状态
func (h *Handler) GetSession(c *gin.Context) {
	sessionID, state, ok := h.resolveIdentity(c)
	if !ok {
		return
	}
	visitor, err := h.Store.LoadVisitor(sessionID)
	if err != nil {
		respondBackendError(c, err)
		return
	}

	payload := gin.H{"identity": state}
	if visitor.HasValidUser() {
		payload["user"] = SessionUser{
			ID:    visitor.UserID,
			Email: visitor.UserEmail,
			Name:  visitor.UserName,
			Role:  visitor.UserRole,
		}
	}
	response.Success(c, payload)
}

// StreamEvents 以 SSE 推送本会话的状态变更事件
// 浏览器多标签页靠它保持购物车角标一致，替代本地 storage 监听
func (h *Handler) StreamEvents(c *gin.Context) {
	sessionID, ok := shared.SessionID(c)
	if !ok {
		return
	}

	events, cancel := h.Store.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, open := <-events:
			if !open {
				return false
			}
			if event.SessionID != sessionID {
				return true
			}
			c.SSEvent(event.Kind, gin.H{"version": event.Version})
			return true
		}
	})
}
