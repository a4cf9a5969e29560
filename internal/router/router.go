package router

import (
	"fmt"
	"strings"

	"github.com/cakery-next/internal/cache"
	"github.com/cakery-next/internal/config"
	adminhandlers "github.com/cakery-next/internal/http/handlers/admin"
	shophandlers "github.com/cakery-next/internal/http/handlers/shop"
	"github.com/cakery-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()

	shopHandler := shophandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ck"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	apiV1.Use(SessionMiddleware(cfg.Session))
	{
		// 会话与事件流
		apiV1.GET("/session", shopHandler.GetSession)
		apiV1.GET("/events", shopHandler.StreamEvents)

		// 认证接口
		auth := apiV1.Group("/auth")
		{
			auth.GET("/captcha", shopHandler.GetCaptcha)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), shopHandler.Login)
			auth.POST("/register", RateLimitMiddleware(redisClient, loginRule, KeyByIP), shopHandler.Register)
			auth.POST("/logout", shopHandler.Logout)
		}

		// 购物车接口
		cart := apiV1.Group("/cart")
		{
			cart.GET("", shopHandler.GetCart)
			cart.POST("/items", shopHandler.AddCartItem)
			cart.PUT("/items/:id", shopHandler.UpdateCartItem)
			cart.DELETE("/items/:id", shopHandler.RemoveCartItem)
		}

		// 商品目录接口（透传后端）
		apiV1.GET("/products", shopHandler.ListProducts)
		apiV1.GET("/products/:slug", shopHandler.GetProduct)
		apiV1.GET("/categories", shopHandler.ListCategories)

		// 订单与发票接口
		apiV1.POST("/orders", shopHandler.PlaceOrder)
		apiV1.GET("/orders", shopHandler.ListOrders)
		apiV1.GET("/orders/:id", shopHandler.GetOrder)
		apiV1.GET("/invoices", shopHandler.ListInvoices)
		apiV1.GET("/invoices/:id", shopHandler.GetInvoice)
		apiV1.POST("/invoices/generate", shopHandler.GenerateInvoice)

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(AdminGuardMiddleware(c))
		{
			admin.GET("/dashboard", adminHandler.Dashboard)
			admin.GET("/:resource", adminHandler.ListResource)
			admin.POST("/:resource", adminHandler.CreateResource)
			admin.GET("/:resource/:id", adminHandler.GetResource)
			admin.PUT("/:resource/:id", adminHandler.UpdateResource)
			admin.DELETE("/:resource/:id", adminHandler.DeleteResource)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
