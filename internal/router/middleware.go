package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cakery-next/internal/authz"
	"github.com/cakery-next/internal/config"
	"github.com/cakery-next/internal/constants"
	"github.com/cakery-next/internal/http/response"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"
const adminVisitorContextKey = "admin_visitor"

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	allowedMethods := cfg.AllowedMethods
	if len(allowedMethods) == 0 {
		allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	allowedHeaders := cfg.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
		}
	}
	methodsHeader := strings.Join(allowedMethods, ", ")
	headersHeader := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowedOrigin := resolveAllowedOrigin(origin, allowedOrigins, cfg.AllowCredentials)
		if allowedOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			if allowedOrigin != "*" {
				c.Writer.Header().Add("Vary", "Origin")
			}
		}
		if cfg.AllowCredentials {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", headersHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", methodsHeader)
		if cfg.MaxAge > 0 {
			c.Writer.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func resolveAllowedOrigin(origin string, allowedOrigins []string, allowCredentials bool) string {
	if len(allowedOrigins) == 0 {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" {
			if allowCredentials && origin != "" {
				return origin
			}
			return "*"
		}
	}
	if origin == "" {
		return ""
	}
	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// RequestIDMiddleware 请求 ID 中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(constants.ContextKeyRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log := logger.SW().With(
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			log.Errorw("request", "errors", c.Errors.String())
			return
		}
		log.Infow("request")
	}
}

func getRequestID(c *gin.Context) string {
	value, ok := c.Get(constants.ContextKeyRequestID)
	if !ok {
		return ""
	}
	if requestID, ok := value.(string); ok {
		return requestID
	}
	return ""
}

// SessionMiddleware 访客会话中间件
// 浏览器侧只持有一枚签名 cookie，真正的身份与购物车快照都存在网关本地
func SessionMiddleware(cfg config.SessionConfig) gin.HandlerFunc {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "ck_session"
	}
	expireHours := cfg.ExpireHours
	if expireHours <= 0 {
		expireHours = 720
	}
	maxAge := expireHours * 3600

	return func(c *gin.Context) {
		sessionID := ""
		if raw, err := c.Cookie(cookieName); err == nil {
			sessionID = parseSessionToken(raw, cfg.Secret)
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			token, err := signSessionToken(sessionID, cfg.Secret, time.Duration(expireHours)*time.Hour)
			if err != nil {
				logger.Errorw("session_token_sign_failed", "error", err)
				response.Error(c, response.CodeInternal, "error.internal")
				c.Abort()
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, token, maxAge, "/", "", cfg.Secure, true)
		}
		c.Set(constants.ContextKeySessionID, sessionID)
		c.Next()
	}
}

func signSessionToken(sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseSessionToken(raw, secret string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	return strings.TrimSpace(claims.Subject)
}

// AdminGuardMiddleware 管理端 RBAC 鉴权中间件
// 会话必须已登录，且 Casbin 策略允许访问目标资源
func AdminGuardMiddleware(c *provider.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, exists := ctx.Get(constants.ContextKeySessionID)
		sessionID, _ := value.(string)
		if !exists || sessionID == "" {
			response.Unauthorized(ctx, "error.unauthorized")
			ctx.Abort()
			return
		}

		visitor, err := c.Store.LoadVisitor(sessionID)
		if err != nil {
			logger.Errorw("admin_guard_load_visitor_failed", "session_id", sessionID, "error", err)
			response.Error(ctx, response.CodeInternal, "error.internal")
			ctx.Abort()
			return
		}
		if !visitor.HasValidUser() {
			response.Unauthorized(ctx, "error.unauthorized")
			ctx.Abort()
			return
		}

		resource := ctx.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = ctx.Request.URL.Path
		}

		allowed, err := c.AuthzService.EnforceUser(visitor.UserID, resource, ctx.Request.Method)
		if err != nil {
			logger.Errorw("admin_guard_enforce_failed",
				"user_id", visitor.UserID,
				"method", ctx.Request.Method,
				"path", ctx.Request.URL.Path,
				"error", err,
			)
			response.Unauthorized(ctx, "error.unauthorized")
			ctx.Abort()
			return
		}
		if !allowed {
			logger.Warnw("admin_guard_permission_denied",
				"user_id", visitor.UserID,
				"method", ctx.Request.Method,
				"path", ctx.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(ctx, "error.forbidden")
			ctx.Abort()
			return
		}

		ctx.Set(adminVisitorContextKey, visitor)
		ctx.Next()
	}
}
