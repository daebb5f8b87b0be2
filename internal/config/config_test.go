package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATA_DIR", "PANEL_STORE", "PANEL_FILE", "STRICT_VARIANTS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ORIGINS", "DEMO_TARGETS",
		"DEMO_VARIANT", "OTEL_ENABLED", "OTEL_SAMPLER_RATIO",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.PanelStore)
	assert.Equal(t, filepath.Join("data", "panels.yaml"), cfg.PanelFile)
	assert.False(t, cfg.StrictVariants)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "gender_swap_female", cfg.DemoVariant)
	assert.Equal(t, []string{"Leo"}, cfg.DemoTargets)
	assert.False(t, cfg.TracingEnabled)
	assert.Equal(t, 0.1, cfg.TracingSampleRatio)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/srv/panels")
	t.Setenv("PANEL_STORE", "SQLite")
	t.Setenv("STRICT_VARIANTS", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("DEMO_TARGETS", "Leo,Ali")
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreSQLite, cfg.PanelStore)
	assert.Equal(t, filepath.Join("/srv/panels", "panels.db"), cfg.SQLitePath)
	assert.True(t, cfg.StrictVariants)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst, "无法解析时应回退到默认值")
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"Leo", "Ali"}, cfg.DemoTargets)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 0.5, cfg.TracingSampleRatio)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PANEL_STORE", "redis")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PANEL_STORE", "memory")
	t.Setenv("RATE_LIMIT_RPS", "-1")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("RATE_LIMIT_RPS", "5")
	t.Setenv("DEMO_VARIANT", "diverse_v9")
	_, err = Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.RateLimitBurst = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DemoVariant = "sepia"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEMO_VARIANT")

	cfg.DemoVariant = "age_younger"
	assert.NoError(t, cfg.Validate())

	cfg.TracingSampleRatio = 1.5
	assert.Error(t, cfg.Validate())
}
