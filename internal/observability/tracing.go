// internal/observability/tracing.go
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/thiswayup/reillustrate/internal/utils"
)

// ServiceName 上报给追踪后端的服务名
const ServiceName = "reillustrate"

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Version     string
	SampleRatio float64
	// Output 为 nil 时写到标准输出
	Output io.Writer
}

// Tracing 持有 tracer provider。未启用时是 noop provider
type Tracing struct {
	Provider trace.TracerProvider

	mu       sync.Mutex
	shutdown func(context.Context) error
}

// NewTracing 按配置创建 tracer provider，启用时 span 以 JSON 写出
func NewTracing(cfg TracingConfig) (*Tracing, error) {
	if !cfg.Enabled {
		return &Tracing{Provider: noop.NewTracerProvider()}, nil
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("创建追踪导出器失败: %w", err)
	}

	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = ServiceName
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", cfg.Version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(clampRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	utils.GetLogger().Info("tracing initialized", map[string]interface{}{
		"service":      name,
		"sample_ratio": clampRatio(cfg.SampleRatio),
	})
	return &Tracing{Provider: tp, shutdown: tp.Shutdown}, nil
}

// Shutdown 刷新并关闭导出器，可重复调用
func (t *Tracing) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	shutdown := t.shutdown
	t.shutdown = nil
	t.mu.Unlock()

	if shutdown == nil {
		return nil
	}
	return shutdown(ctx)
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
