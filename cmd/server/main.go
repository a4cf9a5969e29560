package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/cakery-next/internal/app"
	"github.com/cakery-next/internal/config"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiBlue   = "\033[34m"
	ansiPink   = "\033[95m"
	ansiYellow = "\033[33m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.Session.Secret) {
			stdLog.Fatalf("会话 secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
	} else if isWeakSecret(cfg.Session.Secret) {
		stdLog.Printf("警告: 会话 secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	// 初始化本地会话存储
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移存储表
	if err := models.AutoMigrate(nil); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiPink + "╔══════════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiPink + "║             🍰 Cakery-Next Gateway 启动中             ║" + ansiReset)
	fmt.Println(ansiPink + "╚══════════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiYellow + " ██████╗ █████╗ ██╗  ██╗███████╗██████╗ ██╗   ██╗" + ansiReset)
	fmt.Println(ansiYellow + "██╔════╝██╔══██╗██║ ██╔╝██╔════╝██╔══██╗╚██╗ ██╔╝" + ansiReset)
	fmt.Println(ansiYellow + "██║     ███████║█████╔╝ █████╗  ██████╔╝ ╚████╔╝ " + ansiReset)
	fmt.Println(ansiYellow + "██║     ██╔══██║██╔═██╗ ██╔══╝  ██╔══██╗  ╚██╔╝  " + ansiReset)
	fmt.Println(ansiYellow + "╚██████╗██║  ██║██║  ██╗███████╗██║  ██║   ██║   " + ansiReset)
	fmt.Println(ansiYellow + " ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝   ╚═╝   " + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "蛋糕商城前端网关" + ansiReset)
	fmt.Println(ansiBlue + "• 会话与购物车同步 / 商品目录与结账透传 / 发票异步生成" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
