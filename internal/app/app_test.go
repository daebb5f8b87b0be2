package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiswayup/reillustrate/internal/config"
	"github.com/thiswayup/reillustrate/internal/di"
	"github.com/thiswayup/reillustrate/internal/services"
	"github.com/thiswayup/reillustrate/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LogDir = ""
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestInitServicesRegistersEverything(t *testing.T) {
	container := di.NewContainer()
	closer, err := InitServices(testConfig(t), container)
	require.NoError(t, err)
	defer closer.Close()

	for _, name := range []string{
		di.ServicePanels, di.ServiceMetrics, di.ServiceTransform, di.ServicePrompt,
		di.ServiceValidation, di.ServiceAnalyzer, di.ServiceReviewHub, di.ServicePipeline, di.ServiceTracing,
	} {
		assert.True(t, container.Has(name), "服务未注册: %s", name)
	}

	pipeline, err := di.Resolve[*services.PipelineService](container, di.ServicePipeline)
	require.NoError(t, err)
	panels, err := pipeline.ListPanelSummaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, panels, 5)

	transformer, err := di.Resolve[*services.TransformService](container, di.ServiceTransform)
	require.NoError(t, err)
	assert.Same(t, transformer, pipeline.Transformer)
	prompts, err := di.Resolve[*services.PromptService](container, di.ServicePrompt)
	require.NoError(t, err)
	assert.Same(t, prompts, pipeline.Prompts)
	validator, err := di.Resolve[*services.ValidationService](container, di.ServiceValidation)
	require.NoError(t, err)
	assert.Same(t, validator, pipeline.Validator)

	cleanupHub(t, container)
}

func TestNewPipelineRequiresRegisteredServices(t *testing.T) {
	container := di.NewContainer()
	container.Register(di.ServicePanels, storage.NewSamplePanelRepository())
	_, err := newPipeline(container)
	assert.Error(t, err)
}

func TestInitServicesUsesSQLiteStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.PanelStore = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(cfg.DataDir, "panels.db")
	require.NoError(t, storage.SeedPanelDB(context.Background(), cfg.SQLitePath, storage.SamplePanels()[:2]))

	container := di.NewContainer()
	closer, err := InitServices(cfg, container)
	require.NoError(t, err)
	defer closer.Close()

	pipeline, err := di.Resolve[*services.PipelineService](container, di.ServicePipeline)
	require.NoError(t, err)
	panels, err := pipeline.ListPanelSummaries(context.Background())
	require.NoError(t, err)
	assert.Len(t, panels, 2)

	cleanupHub(t, container)
}

func TestInitServicesMissingCatalogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PanelStore = config.StoreFile
	cfg.PanelFile = filepath.Join(cfg.DataDir, "missing.yaml")

	_, err := InitServices(cfg, di.NewContainer())
	assert.Error(t, err)
}

func TestNewAppServesHealth(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	assert.True(t, a.IsDebugMode())

	router, err := a.Router()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	require.NoError(t, a.Cleanup())
	// 重复调用不应出错
	require.NoError(t, a.Cleanup())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.PanelStore = "redis"
	_, err := New(cfg)
	assert.Error(t, err)
}

func cleanupHub(t *testing.T, container *di.Container) {
	t.Helper()
	a := &App{Container: container}
	require.NoError(t, a.Cleanup())
}
