// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thiswayup/reillustrate/internal/api"
	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/di"
	"github.com/thiswayup/reillustrate/internal/observability"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/storage"
	"github.com/thiswayup/reillustrate/internal/utils"
)

const (
	metricsReportInterval  = 5 * time.Minute
	tracingShutdownTimeout = 5 * time.Second
)

// App 持有服务容器和需要在退出时释放的资源
type App struct {
	Config    *config.Config
	Container *di.Container

	repoCloser  io.Closer
	stopMetrics context.CancelFunc
}

// New 初始化日志和全部服务
func New(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	InitLogger(cfg)

	container := di.NewContainer()
	closer, err := InitServices(cfg, container)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	metrics, _ := di.Resolve[*utils.APIMetrics](container, di.ServiceMetrics)
	metrics.StartMetricsCollection(ctx, metricsReportInterval)

	return &App{
		Config:      cfg,
		Container:   container,
		repoCloser:  closer,
		stopMetrics: cancel,
	}, nil
}

// InitLogger 按配置设置日志级别、编码器和日志文件
func InitLogger(cfg *config.Config) {
	logger := utils.GetLogger()
	logger.SetDevelopment(cfg.DebugMode)
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))

	if cfg.LogDir == "" {
		return
	}
	logFile := filepath.Join(cfg.LogDir, "reillustrate.log")
	if err := utils.InitLogger(logFile); err != nil {
		logger.Warn("log file disabled", map[string]interface{}{"file": logFile, "error": err.Error()})
	}
}

// InitServices 按依赖顺序创建服务并注册到容器。
// 返回的 Closer 负责释放面板仓库。
func InitServices(cfg *config.Config, container *di.Container) (io.Closer, error) {
	// 1. 面板仓库
	panels, closer, err := storage.NewPanelRepositoryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化面板仓库失败: %w", err)
	}
	container.Register(di.ServicePanels, panels)

	// 2. 指标
	metrics := utils.NewAPIMetricsWithCollector(utils.NewMetricsCollector())
	container.Register(di.ServiceMetrics, metrics)

	// 3. 纯计算服务
	transformer := services.NewTransformService(cfg.StrictVariants)
	prompts := services.NewPromptService()
	validator, err := services.NewValidationService()
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("初始化审核服务失败: %w", err)
	}
	container.Register(di.ServiceTransform, transformer)
	container.Register(di.ServicePrompt, prompts)
	container.Register(di.ServiceValidation, validator)
	container.Register(di.ServiceAnalyzer, services.NewAnalyzerService())

	// 4. 链路追踪
	tracing, err := observability.NewTracing(observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: observability.ServiceName,
		Version:     api.ServiceVersion,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	container.Register(di.ServiceTracing, tracing)

	// 5. 审核推送和流水线
	hub := api.NewReviewHub(metrics.Collector())
	container.Register(di.ServiceReviewHub, hub)

	pipeline, err := newPipeline(container)
	if err != nil {
		hub.Stop()
		tracing.Shutdown(context.Background())
		closer.Close()
		return nil, err
	}
	pipeline.SetNotifier(hub)
	pipeline.SetTracerProvider(tracing.Provider)
	container.Register(di.ServicePipeline, pipeline)

	utils.GetLogger().Info("services initialized", map[string]interface{}{
		"panel_store": cfg.PanelStore,
		"strict":      cfg.StrictVariants,
		"services":    container.GetNames(),
	})
	return closer, nil
}

// newPipeline 从容器中取出已注册的服务组装流水线
func newPipeline(container *di.Container) (*services.PipelineService, error) {
	panels, err := di.Resolve[storage.PanelRepository](container, di.ServicePanels)
	if err != nil {
		return nil, err
	}
	transformer, err := di.Resolve[*services.TransformService](container, di.ServiceTransform)
	if err != nil {
		return nil, err
	}
	prompts, err := di.Resolve[*services.PromptService](container, di.ServicePrompt)
	if err != nil {
		return nil, err
	}
	validator, err := di.Resolve[*services.ValidationService](container, di.ServiceValidation)
	if err != nil {
		return nil, err
	}
	metrics, err := di.Resolve[*utils.APIMetrics](container, di.ServiceMetrics)
	if err != nil {
		return nil, err
	}
	return services.NewPipelineService(panels, transformer, prompts, validator, metrics), nil
}

// Router 构建 HTTP 路由
func (a *App) Router() (*gin.Engine, error) {
	return api.SetupRouter(a.Config, a.Container)
}

// IsDebugMode 是否处于调试模式
func (a *App) IsDebugMode() bool {
	return a.Config != nil && a.Config.DebugMode
}

// Cleanup 停止后台任务并释放资源，可重复调用
func (a *App) Cleanup() error {
	if a.stopMetrics != nil {
		a.stopMetrics()
		a.stopMetrics = nil
	}

	if hub, err := di.Resolve[*api.ReviewHub](a.Container, di.ServiceReviewHub); err == nil {
		hub.Stop()
	}

	var errs []error
	if tracing, err := di.Resolve[*observability.Tracing](a.Container, di.ServiceTracing); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		if err := tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("关闭链路追踪失败: %w", err))
		}
		cancel()
	}
	if a.repoCloser != nil {
		if err := a.repoCloser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭面板仓库失败: %w", err))
		}
		a.repoCloser = nil
	}

	utils.GetLogger().Sync()
	return errors.Join(errs...)
}
