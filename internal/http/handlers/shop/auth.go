package shop

import (
	"github.com/cakery-next/internal/constants"
	"github.com/cakery-next/internal/http/handlers/shared"
	"github.com/cakery-next/internal/http/response"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	Name        string `json:"name" binding:"required"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// GetCaptcha 获取登录验证码挑战
func (h *Handler) GetCaptcha(c *gin.Context) {
	if !h.CaptchaService.RequiredForLogin() {
		response.Success(c, gin.H{"required": false})
		return
	}
	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "error.captcha_generate_failed", err)
		return
	}
	response.Success(c, gin.H{
		"required":     true,
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}

// Login 登录
// 登录前若存在游客购物车则由解析器触发一次合并
func (h *Handler) Login(c *gin.Context) {
	sessionID, ok := shared.SessionID(c)
	if !ok {
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "error.bad_request")
		return
	}
	if err := h.CaptchaService.VerifyLogin(service.CaptchaVerifyPayload{
		CaptchaID:   req.CaptchaID,
		CaptchaCode: req.CaptchaCode,
	}); err != nil {
		respondBackendError(c, err)
		return
	}

	state, err := h.Resolver.Login(c.Request.Context(), sessionID, req.Email, req.Password)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	h.syncUserRole(sessionID)
	response.Success(c, gin.H{"identity": state})
}

// Register 注册并登录
func (h *Handler) Register(c *gin.Context) {
	sessionID, ok := shared.SessionID(c)
	if !ok {
		return
	}
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "error.bad_request")
		return
	}
	if err := h.CaptchaService.VerifyLogin(service.CaptchaVerifyPayload{
		CaptchaID:   req.CaptchaID,
		CaptchaCode: req.CaptchaCode,
	}); err != nil {
		respondBackendError(c, err)
		return
	}

	state, err := h.Resolver.Register(c.Request.Context(), sessionID, req.Email, req.Password, req.Name)
	if err != nil {
		respondBackendError(c, err)
		return
	}
	h.syncUserRole(sessionID)
	response.Success(c, gin.H{"identity": state})
}

// Logout 登出：清空身份、购物车缓存与角色绑定
func (h *Handler) Logout(c *gin.Context) {
	sessionID, visitor, ok := h.sessionVisitor(c)
	if !ok {
		return
	}
	if err := h.Resolver.Logout(c.Request.Context(), sessionID); err != nil {
		respondBackendError(c, err)
		return
	}
	if visitor.UserID != 0 {
		if err := h.AuthzService.RevokeRoles(visitor.UserID); err != nil {
			logger.Warnw("logout_revoke_roles_failed", "user_id", visitor.UserID, "error", err)
		}
	}
	response.SuccessWithMsg(c, "logout", nil)
}

// syncUserRole 登录后把后端下发的角色同步到本地授权表
func (h *Handler) syncUserRole(sessionID string) {
	visitor, err := h.Store.LoadVisitor(sessionID)
	if err != nil || !visitor.HasValidUser() {
		return
	}
	role := visitor.UserRole
	if role == "" {
		role = constants.RoleCustomer
	}
	if err := h.AuthzService.AssignRole(visitor.UserID, role); err != nil {
		logger.Warnw("login_assign_role_failed", "user_id", visitor.UserID, "role", role, "error", err)
	}
}
