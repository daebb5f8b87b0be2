// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/thiswayup/reillustrate/internal/models"
)

// 面板仓库类型
const (
	StoreMemory = "memory" // 内置示例面板
	StoreFile   = "file"   // JSON/YAML 面板目录文件
	StoreSQLite = "sqlite" // SQLite 数据库
)

// Config 存储应用配置
type Config struct {
	// 基础配置
	Port      string
	DataDir   string
	LogDir    string
	DebugMode bool
	LogLevel  string

	// 面板仓库
	PanelStore string
	PanelFile  string
	SQLitePath string

	// 规格生成器：严格模式下未知变体族直接报错
	StrictVariants bool

	// HTTP 边界
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	// 演示流水线
	DemoVariant string
	DemoTargets []string

	// 链路追踪
	TracingEnabled     bool
	TracingSampleRatio float64
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "data")
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DataDir:        dataDir,
		LogDir:         getEnv("LOG_DIR", "logs"),
		DebugMode:      getEnvBool("DEBUG_MODE", true),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		PanelStore:     strings.ToLower(getEnv("PANEL_STORE", StoreMemory)),
		PanelFile:      getEnv("PANEL_FILE", filepath.Join(dataDir, "panels.yaml")),
		SQLitePath:     getEnv("SQLITE_PATH", filepath.Join(dataDir, "panels.db")),
		StrictVariants: getEnvBool("STRICT_VARIANTS", false),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
		DemoVariant:    getEnv("DEMO_VARIANT", models.VariantGenderSwapFemale),
		DemoTargets:    getEnvList("DEMO_TARGETS", []string{"Leo"}),

		TracingEnabled:     getEnvBool("OTEL_ENABLED", false),
		TracingSampleRatio: getEnvFloat("OTEL_SAMPLER_RATIO", 0.1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c *Config) Validate() error {
	switch c.PanelStore {
	case StoreMemory, StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("未知的面板仓库类型 PANEL_STORE=%q", c.PanelStore)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS 必须为正数，当前为 %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST 必须为正数，当前为 %d", c.RateLimitBurst)
	}
	if c.Port == "" {
		return fmt.Errorf("PORT 不能为空")
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLER_RATIO 必须在 0 到 1 之间，当前为 %v", c.TracingSampleRatio)
	}
	if !models.IsValidVariant(c.DemoVariant) {
		return fmt.Errorf("未知的演示变体 DEMO_VARIANT=%q，可选值: %v", c.DemoVariant, models.ValidVariantIDs())
	}
	return nil
}

// Default 返回不读取环境变量的默认配置
func Default() *Config {
	return &Config{
		Port:           "8080",
		DataDir:        "data",
		LogDir:         "logs",
		DebugMode:      true,
		LogLevel:       "info",
		PanelStore:     StoreMemory,
		PanelFile:      filepath.Join("data", "panels.yaml"),
		SQLitePath:     filepath.Join("data", "panels.db"),
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		CORSOrigins:    []string{"*"},
		DemoVariant:    models.VariantGenderSwapFemale,
		DemoTargets:    []string{"Leo"},

		TracingSampleRatio: 0.1,
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt 获取整数环境变量，解析失败时使用默认值
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvFloat 获取浮点环境变量，解析失败时使用默认值
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvList 获取逗号分隔的列表
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
