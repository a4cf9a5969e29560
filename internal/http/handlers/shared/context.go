package shared

import (
	"github.com/cakery-next/internal/constants"
	"github.com/cakery-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SessionID 从上下文读取访客会话标识。
// 会话中间件保证其存在，缺失说明路由挂载有误。
func SessionID(c *gin.Context) (string, bool) {
	value, exists := c.Get(constants.ContextKeySessionID)
	if !exists {
		RespondError(c, response.CodeInternal, "error.session_missing", nil)
		return "", false
	}
	sessionID, ok := value.(string)
	if !ok || sessionID == "" {
		RespondError(c, response.CodeInternal, "error.session_missing", nil)
		return "", false
	}
	return sessionID, true
}
