package provider

import (
	"time"

	"github.com/cakery-next/internal/authz"
	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/cache"
	"github.com/cakery-next/internal/cart"
	"github.com/cakery-next/internal/config"
	"github.com/cakery-next/internal/identity"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/queue"
	"github.com/cakery-next/internal/service"
	"github.com/cakery-next/internal/store"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	Backend *backend.Client
	Store   *store.Store

	AuthzService     *authz.Service
	Resolver         *identity.Resolver
	CartSync         *cart.Synchronizer
	CaptchaService   *service.CaptchaService
	CheckoutService  *service.CheckoutService
	InvoiceService   *service.InvoiceService
	DashboardService *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}
	c.initServices()
	return c
}

func (c *Container) initServices() {
	c.Backend = backend.New(c.Config.Backend)
	c.Store = store.New(models.DB)

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	throttle := time.Duration(c.Config.Cart.FetchThrottleMS) * time.Millisecond
	c.CartSync = cart.NewSynchronizer(c.Backend, c.Store, throttle)

	c.Resolver = identity.NewResolver(c.Backend, c.Store)
	// 登录后的游客购物车合并由同步器承接
	c.Resolver.SetMerger(c.CartSync)

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.CheckoutService = service.NewCheckoutService(c.Backend, c.CartSync)
	c.InvoiceService = service.NewInvoiceService(c.Backend, c.QueueClient, c.Store)

	dashboardInterval := time.Duration(c.Config.Polling.DashboardSeconds) * time.Second
	c.DashboardService = service.NewDashboardService(c.Backend, dashboardInterval)
}
