package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/di"
	apperrors "github.com/thiswayup/reillustrate/internal/errors"
	"github.com/thiswayup/reillustrate/internal/models"
	"github.com/thiswayup/reillustrate/internal/observability"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/storage"
	"github.com/thiswayup/reillustrate/internal/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router  *gin.Engine
	hub     *ReviewHub
	metrics *utils.APIMetrics
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()
	return newTracedTestEnv(t, mutate, nil)
}

// newTracedTestEnv 在 tp 非 nil 时注册链路追踪
func newTracedTestEnv(t *testing.T, mutate func(cfg *config.Config), tp trace.TracerProvider) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.DebugMode = true
	if mutate != nil {
		mutate(cfg)
	}

	metrics := utils.NewAPIMetricsWithCollector(utils.NewMetricsCollector())
	validator, err := services.NewValidationService()
	require.NoError(t, err)

	hub := NewReviewHub(metrics.Collector())
	t.Cleanup(hub.Stop)

	pipeline := services.NewPipelineService(
		storage.NewSamplePanelRepository(),
		services.NewTransformService(cfg.StrictVariants),
		services.NewPromptService(),
		validator,
		metrics,
	)
	pipeline.SetNotifier(hub)

	container := di.NewContainer()
	container.Register(di.ServicePipeline, pipeline)
	container.Register(di.ServiceAnalyzer, services.NewAnalyzerService())
	container.Register(di.ServiceMetrics, metrics)
	container.Register(di.ServiceReviewHub, hub)
	if tp != nil {
		container.Register(di.ServiceTracing, &observability.Tracing{Provider: tp})
		pipeline.SetTracerProvider(tp)
	}

	router, err := SetupRouter(cfg, container)
	require.NoError(t, err)
	return &testEnv{router: router, hub: hub, metrics: metrics}
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestMissingServiceFailsSetup(t *testing.T) {
	_, err := SetupRouter(config.Default(), di.NewContainer())
	assert.Error(t, err)
}

func TestIndexAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var banner map[string]interface{}
	decode(t, w, &banner)
	assert.Equal(t, "TWU Re-Illustration API", banner["service"])
	assert.NotContains(t, banner, "message")
	assert.Equal(t, "running", banner["status"])
	assert.Contains(t, banner, "endpoints")

	w = env.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/health", "", "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w = env.do(http.MethodGet, "/api/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestListPanelsAndVariants(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/panels", "")
	require.Equal(t, http.StatusOK, w.Code)
	var panels struct {
		Panels []models.PanelSummary `json:"panels"`
	}
	decode(t, w, &panels)
	require.Len(t, panels.Panels, 5)
	assert.Equal(t, storage.SampleNarratorIntro, panels.Panels[0].PanelID)

	w = env.do(http.MethodGet, "/api/variants", "")
	require.Equal(t, http.StatusOK, w.Code)
	var variants struct {
		Variants []models.Variant `json:"variants"`
	}
	decode(t, w, &variants)
	assert.Len(t, variants.Variants, 7)
}

func TestGetPanel(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/panels/"+storage.SampleBedDistress, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Panel models.Panel `json:"panel"`
	}
	decode(t, w, &body)
	assert.Equal(t, storage.SampleBedDistress, body.Panel.PanelID)

	w = env.do(http.MethodGet, "/api/panels/nonexistent", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	var errBody ErrorResponse
	decode(t, w, &errBody)
	assert.Equal(t, "Panel nonexistent not found", errBody.Detail)
	assert.Equal(t, ErrorPanelNotFound, errBody.Code)
	assert.NotEmpty(t, errBody.RequestID)
}

func TestTransformInvalidVariantListsValidIDs(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/transform",
		`{"panel_id":"`+storage.SampleTherapyIntro+`","variant_type":"nonexistent"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, ErrorInvalidVariant, body.Code)
	assert.Equal(t, models.ValidVariantIDs(), body.ValidVariants)
	assert.True(t, strings.HasPrefix(body.Detail, "Invalid variant_type. Must be one of:"), body.Detail)
	for _, id := range models.ValidVariantIDs() {
		assert.Contains(t, body.Detail, id)
	}
}

func TestTransformUnknownPanelCheckedFirst(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/transform", `{"panel_id":"nonexistent","variant_type":"also_bad"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, "Panel nonexistent not found", body.Detail)
}

func TestTransformBadBody(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/transform", `{"panel_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, ErrorBadRequest, body.Code)

	w = env.do(http.MethodPost, "/api/transform", `{"variant_type":"age_older"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransformSuccess(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/transform",
		`{"panel_id":"`+storage.SampleBedDistress+`","variant_type":"age_older"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result services.TransformResult
	decode(t, w, &result)
	assert.Equal(t, storage.SampleBedDistress, result.PanelID)
	assert.Equal(t, models.VariantAgeOlder, result.VariantType)
	require.NotNil(t, result.TransformSpec)
	assert.Contains(t, result.TransformSpec.CharacterTransforms, "Leo")
	require.NotNil(t, result.Prompts)
	assert.NotEmpty(t, result.Prompts.PositivePrompt)
	assert.Equal(t, services.NegativePrompt, result.Prompts.NegativePrompt)

	assert.Equal(t, int64(1), env.metrics.Collector().GetCounterValue("transforms_total"))
}

func TestTransformExplicitEmptyTargets(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/transform",
		`{"panel_id":"`+storage.SampleTherapyIntro+`","variant_type":"diverse_v1","target_characters":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.TransformResult
	decode(t, w, &result)
	assert.Empty(t, result.TransformSpec.CharacterTransforms)
}

func TestValidationPromptEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodPost, "/api/validate/prompt",
		`{"panel_id":"`+storage.SampleTherapyIntro+`","variant_type":"gender_swap_female"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.ValidationResult
	decode(t, w, &result)
	assert.Equal(t, storage.SampleTherapyIntro, result.PanelID)
	assert.Contains(t, result.ValidationPrompt, storage.SampleTherapyIntro)
}

func TestAnalyzeEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/analyze/prompt", "")
	require.Equal(t, http.StatusOK, w.Code)
	var prompt struct {
		Prompt string `json:"prompt"`
	}
	decode(t, w, &prompt)
	assert.NotEmpty(t, prompt.Prompt)

	yamlBody := strings.Join([]string{
		"panel_id: uploaded_panel",
		"category: client_single",
		"scene_description: A person sits alone on a bench",
		"characters:",
		"  - role: client",
		"    name: Sam",
		"    emotion: neutral",
	}, "\n")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze/parse?format=yaml", strings.NewReader(yamlBody))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var parsed struct {
		Panel models.Panel `json:"panel"`
	}
	decode(t, rec, &parsed)
	assert.Equal(t, "uploaded_panel", parsed.Panel.PanelID)
	require.Len(t, parsed.Panel.Characters, 1)
	assert.Equal(t, "Sam", parsed.Panel.Characters[0].Name)

	w = env.do(http.MethodPost, "/api/analyze/parse?panel_id=caller_panel",
		`{"category":"client_single","characters":[{"role":"client","name":"Sam","emotion":"neutral"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &parsed)
	assert.Equal(t, "caller_panel", parsed.Panel.PanelID)

	w = env.do(http.MethodPost, "/api/analyze/parse?format=xml", `<panel/>`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errBody ErrorResponse
	decode(t, w, &errBody)
	assert.Equal(t, ErrorAnalysisFormatInvalid, errBody.Code)

	w = env.do(http.MethodPost, "/api/analyze/parse", `{"panel_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &errBody)
	assert.Equal(t, ErrorBadRequest, errBody.Code)

	w = env.do(http.MethodPost, "/api/analyze/parse", `{"panel_id":"p","characters":[{"role":"villain","name":"A","emotion":"neutral"}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &errBody)
	assert.Equal(t, ErrorPanelInvalid, errBody.Code)
}

func TestHandleErrorTransformFailed(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/validate/prompt", nil)

	NewResponseHelper(nil).HandleError(c, apperrors.NewTransformFailedError("failed to build validation prompt", io.ErrUnexpectedEOF))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, ErrorTransformFailed, body.Code)
	assert.Equal(t, "failed to build validation prompt", body.Detail)
}

func TestDemoEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(http.MethodGet, "/api/demo", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report services.DemoReport
	decode(t, w, &report)
	require.Equal(t, 5, report.TotalPanels)
	assert.Len(t, report.VariantsAvailable, 7)
	for _, p := range report.Panels {
		assert.True(t, strings.HasSuffix(p.PromptExcerpt, "..."))
		assert.Empty(t, p.ValidationPrompt)
		assert.Equal(t, models.VariantGenderSwapFemale, p.TransformSpec.Variant)
	}

	w = env.do(http.MethodGet, "/api/demo?full=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &report)
	for _, p := range report.Panels {
		assert.NotEmpty(t, p.ValidationPrompt)
	}
}

func TestDemoUsesConfiguredDefaults(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.DemoVariant = models.VariantAgeYounger
		cfg.DemoTargets = []string{"Ali"}
	})

	w := env.do(http.MethodGet, "/api/demo", "")
	require.Equal(t, http.StatusOK, w.Code)
	var report services.DemoReport
	decode(t, w, &report)
	for _, p := range report.Panels {
		assert.Equal(t, models.VariantAgeYounger, p.TransformSpec.Variant)
		if p.PanelID == storage.SampleBedroomDomestic {
			assert.Equal(t, []string{"Ali"}, p.TransformSpec.CharactersTransformed)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodGet, "/api/health", "")

	w := env.do(http.MethodGet, "/api/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot map[string]interface{}
	decode(t, w, &snapshot)
	assert.Contains(t, snapshot, "counters")
	assert.Contains(t, snapshot, "websocket")
	assert.Contains(t, snapshot, "uptime_seconds")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimitRPS = 0.001
		cfg.RateLimitBurst = 2
	})

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/health", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/health", "").Code)

	w := env.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, ErrorRateLimitExceeded, body.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// 不在 /api 下的路由不限流
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/", "").Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/api/health", "", "Origin", "http://client.example")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	restricted := newTestEnv(t, func(cfg *config.Config) {
		cfg.CORSOrigins = []string{"http://allowed.example"}
	})
	w = restricted.do(http.MethodGet, "/api/health", "", "Origin", "http://allowed.example")
	assert.Equal(t, "http://allowed.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = restricted.do(http.MethodGet, "/api/health", "", "Origin", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTracingSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	env := newTracedTestEnv(t, nil, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	w := env.do(http.MethodPost, "/api/transform",
		`{"panel_id":"insomnia_L1_P3_bed_distress","variant_type":"age_older"}`, "X-Request-ID", "trace-req-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var server, pipeline sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "pipeline.Transform" {
			pipeline = span
			continue
		}
		for _, kv := range span.Attributes() {
			if string(kv.Key) == requestIDAttr && kv.Value.AsString() == "trace-req-1" {
				server = span
			}
		}
	}
	require.NotNil(t, server, "缺少带请求 id 的服务端 span")
	require.NotNil(t, pipeline, "缺少流水线 span")
	assert.Equal(t, trace.SpanKindServer, server.SpanKind())
	assert.Equal(t, server.SpanContext().TraceID(), pipeline.Parent().TraceID())
	assert.Equal(t, server.SpanContext().SpanID(), pipeline.Parent().SpanID())
}

func TestNoRoute(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/api/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	var body ErrorResponse
	decode(t, w, &body)
	assert.Equal(t, ErrorNotFound, body.Code)
}

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}
