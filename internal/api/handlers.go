// internal/api/handlers.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thiswayup/reillustrate/internal/models"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/utils"
)

const (
	serviceName = "TWU Re-Illustration API"
	// ServiceVersion 服务版本，同时上报到追踪资源
	ServiceVersion = "0.1.0"

	maxAnalysisBody = 1 << 20
)

// Handler 处理API请求
type Handler struct {
	Pipeline *services.PipelineService // 变换流水线
	Analyzer *services.AnalyzerService // 面板分析契约
	Hub      *ReviewHub                // 审核推送
	Metrics  *utils.APIMetrics         // 指标
	Response *ResponseHelper           // 响应助手

	demoVariant string
	demoTargets []string
	startedAt   time.Time
}

// TransformRequest 变换请求。target_characters 缺省时变换全部来访者
type TransformRequest struct {
	PanelID          string   `json:"panel_id" binding:"required"`
	VariantType      string   `json:"variant_type" binding:"required"`
	TargetCharacters []string `json:"target_characters"`
}

// NewHandler 创建API处理器
func NewHandler(
	pipeline *services.PipelineService,
	analyzer *services.AnalyzerService,
	hub *ReviewHub,
	metrics *utils.APIMetrics,
) *Handler {
	return &Handler{
		Pipeline:    pipeline,
		Analyzer:    analyzer,
		Hub:         hub,
		Metrics:     metrics,
		Response:    NewResponseHelper(metrics),
		demoVariant: services.DefaultDemoVariant,
		demoTargets: services.DefaultDemoTargets(),
		startedAt:   time.Now(),
	}
}

// SetDemoDefaults 设置 /api/demo 使用的变体和目标角色
func (h *Handler) SetDemoDefaults(variant string, targets []string) {
	if variant != "" {
		h.demoVariant = variant
	}
	if targets != nil {
		h.demoTargets = targets
	}
}

// Index 服务横幅
func (h *Handler) Index(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"service": serviceName,
		"version": ServiceVersion,
		"status":  "running",
		"endpoints": gin.H{
			"health":            "GET /api/health",
			"panels":            "GET /api/panels",
			"panel":             "GET /api/panels/{panel_id}",
			"variants":          "GET /api/variants",
			"transform":         "POST /api/transform",
			"validation_prompt": "POST /api/validate/prompt",
			"analysis_prompt":   "GET /api/analyze/prompt",
			"analysis_parse":    "POST /api/analyze/parse",
			"demo":              "GET /api/demo",
			"metrics":           "GET /api/metrics",
			"review_feed":       "GET /ws/panels/{panel_id}",
		},
	})
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{"status": "healthy"})
}

// ListPanels 列出全部面板摘要
func (h *Handler) ListPanels(c *gin.Context) {
	panels, err := h.Pipeline.ListPanelSummaries(c.Request.Context())
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"panels": panels})
}

// GetPanel 获取单个面板
func (h *Handler) GetPanel(c *gin.Context) {
	panel, err := h.Pipeline.GetPanel(c.Request.Context(), c.Param("panel_id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"panel": panel})
}

// ListVariants 列出可用变体
func (h *Handler) ListVariants(c *gin.Context) {
	h.Response.Success(c, gin.H{"variants": models.VariantCatalog()})
}

// Transform 生成变换规格和提示词
func (h *Handler) Transform(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.Pipeline.Transform(c.Request.Context(), req.PanelID, req.VariantType, req.TargetCharacters)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// ValidationPrompt 生成审核提示词
func (h *Handler) ValidationPrompt(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.Pipeline.ValidationPrompt(c.Request.Context(), req.PanelID, req.VariantType, req.TargetCharacters)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// AnalysisPrompt 返回面板分析提示词
func (h *Handler) AnalysisPrompt(c *gin.Context) {
	h.Response.Success(c, gin.H{"prompt": h.Analyzer.AnalysisPrompt()})
}

// ParseAnalysis 把视觉模型的响应解析为面板
func (h *Handler) ParseAnalysis(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", services.FormatJSON))
	if format != services.FormatJSON && format != services.FormatYAML {
		h.Response.Error(c, http.StatusBadRequest, ErrorAnalysisFormatInvalid,
			"format must be one of: json, yaml")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAnalysisBody)
	body, err := c.GetRawData()
	if err != nil {
		h.Response.BadRequest(c, "Failed to read request body: "+err.Error())
		return
	}
	if len(body) == 0 {
		h.Response.BadRequest(c, "Request body is empty")
		return
	}

	panel, err := h.Analyzer.ParseAnalysisResponse(body, format, c.Query("panel_id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"panel": panel})
}

// Demo 对全部面板运行演示流水线，?full=true 时附带审核提示词
func (h *Handler) Demo(c *gin.Context) {
	opts := services.DemoOptions{
		Variant: h.demoVariant,
		Targets: h.demoTargets,
		Full:    c.Query("full") == "true",
	}
	report, err := h.Pipeline.RunDemo(c.Request.Context(), opts)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, report)
}

// GetMetrics 指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	snapshot := h.Metrics.Collector().GetMetrics()
	snapshot["uptime_seconds"] = int64(time.Since(h.startedAt).Seconds())
	if h.Hub != nil {
		snapshot["websocket"] = h.Hub.GetStatus()
	}
	h.Response.Success(c, snapshot)
}

// ReviewFeed 升级为 WebSocket 并订阅面板的变换事件
func (h *Handler) ReviewFeed(c *gin.Context) {
	panelID := c.Param("panel_id")

	// 面板不存在时不升级
	if _, err := h.Pipeline.GetPanel(c.Request.Context(), panelID); err != nil {
		h.Response.HandleError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("websocket upgrade failed", map[string]interface{}{
			"panel_id": panelID,
			"error":    err.Error(),
		})
		return
	}
	h.Hub.Serve(conn, panelID)
}
