// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/di"
	"github.com/thiswayup/reillustrate/internal/observability"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/utils"
)

// SetupRouter 配置HTTP路由，服务全部从容器获取
func SetupRouter(cfg *config.Config, container *di.Container) (*gin.Engine, error) {
	pipeline, err := di.Resolve[*services.PipelineService](container, di.ServicePipeline)
	if err != nil {
		return nil, fmt.Errorf("流水线服务未正确初始化: %w", err)
	}
	analyzer, err := di.Resolve[*services.AnalyzerService](container, di.ServiceAnalyzer)
	if err != nil {
		return nil, fmt.Errorf("分析服务未正确初始化: %w", err)
	}
	metrics, err := di.Resolve[*utils.APIMetrics](container, di.ServiceMetrics)
	if err != nil {
		return nil, fmt.Errorf("指标服务未正确初始化: %w", err)
	}
	hub, err := di.Resolve[*ReviewHub](container, di.ServiceReviewHub)
	if err != nil {
		return nil, fmt.Errorf("审核推送未正确初始化: %w", err)
	}

	handler := NewHandler(pipeline, analyzer, hub, metrics)
	handler.SetDemoDefaults(cfg.DemoVariant, cfg.DemoTargets)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(observability.ServiceName, otelgin.WithTracerProvider(tracerProvider(container))))
	r.Use(RequestIDMiddleware())
	r.Use(RequestLoggerMiddleware(metrics))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r.GET("/", handler.Index)

	// WebSocket 审核推送，不限流
	r.GET("/ws/panels/:panel_id", handler.ReviewFeed)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(limiter.Middleware(handler.Response))
	{
		api.GET("/health", handler.Health)
		api.GET("/metrics", handler.GetMetrics)
		api.GET("/variants", handler.ListVariants)
		api.GET("/demo", handler.Demo)
		api.POST("/transform", handler.Transform)

		panels := api.Group("/panels")
		{
			panels.GET("", handler.ListPanels)
			panels.GET("/:panel_id", handler.GetPanel)
		}

		validate := api.Group("/validate")
		{
			validate.POST("/prompt", handler.ValidationPrompt)
		}

		analyze := api.Group("/analyze")
		{
			analyze.GET("/prompt", handler.AnalysisPrompt)
			analyze.POST("/parse", handler.ParseAnalysis)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		handler.Response.NotFound(c, "Not Found")
	})

	return r, nil
}

// tracerProvider 追踪是可选服务，未注册时使用 noop provider
func tracerProvider(container *di.Container) trace.TracerProvider {
	tracing, err := di.Resolve[*observability.Tracing](container, di.ServiceTracing)
	if err != nil || tracing.Provider == nil {
		return noop.NewTracerProvider()
	}
	return tracing.Provider
}

// corsMiddleware 按配置的来源放行跨域请求，"*" 表示全部放行
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
			break
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
