// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thiswayup/reillustrate/internal/app"
	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/utils"
)

func main() {
	log.Println("🚀 启动 TWU Re-Illustration 服务器...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 配置加载完成，端口: %s，面板仓库: %s", cfg.Port, cfg.PanelStore)

	// 2. 创建必要的目录
	createDirectories(cfg)

	// 3. 初始化日志和全部服务
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	logger := utils.GetLogger()
	logger.Info("services ready", map[string]interface{}{"services": application.Container.GetNames()})

	// 4. 设置路由
	router, err := application.Router()
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	log.Println("✅ 路由设置完成")

	// 5. 启动服务器
	log.Printf("🌐 服务器启动在端口 %s", cfg.Port)
	log.Printf("🔗 访问地址: http://localhost:%s", cfg.Port)

	runWithGracefulShutdown(router, cfg.Port)

	if err := application.Cleanup(); err != nil {
		log.Printf("⚠️ 资源释放失败: %v", err)
	}
	log.Println("✅ 服务器优雅关闭完成")
}

// runWithGracefulShutdown 运行服务器直到收到中断信号
func runWithGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在新的 goroutine 中启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ 启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ 服务器强制关闭: %v", err)
	}
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) {
	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
	log.Println("✅ 目录结构创建完成")
}
