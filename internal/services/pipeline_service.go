// internal/services/pipeline_service.go
package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/thiswayup/reillustrate/internal/errors"
	"github.com/thiswayup/reillustrate/internal/models"
	"github.com/thiswayup/reillustrate/internal/storage"
	"github.com/thiswayup/reillustrate/internal/utils"
)

// 演示流水线默认参数
const (
	DefaultDemoVariant = models.VariantGenderSwapFemale
	demoExcerptRunes   = 300
	demoWorkers        = 4
)

// DefaultDemoTargets 演示默认只变换 Leo
func DefaultDemoTargets() []string {
	return []string{"Leo"}
}

// TransformResult 一次变换的完整结果
type TransformResult struct {
	PanelID       string                     `json:"panel_id"`
	VariantType   string                     `json:"variant_type"`
	TransformSpec *models.TransformationSpec `json:"transform_spec"`
	Prompts       *models.PromptBundle       `json:"prompts"`
}

// ValidationResult 审核提示词结果
type ValidationResult struct {
	PanelID          string `json:"panel_id"`
	VariantType      string `json:"variant_type"`
	ValidationPrompt string `json:"validation_prompt"`
}

// TransformEvent 推送给审核订阅者的变换事件
type TransformEvent struct {
	Type                    string    `json:"type"`
	PanelID                 string    `json:"panel_id"`
	VariantType             string    `json:"variant_type"`
	CharactersTransformed   []string  `json:"characters_transformed"`
	MinStructuralSimilarity float64   `json:"min_structural_similarity"`
	Timestamp               time.Time `json:"timestamp"`
}

// TransformNotifier 接收每次成功生成的变换
type TransformNotifier interface {
	NotifyTransform(event TransformEvent)
}

// DemoCharacter 演示结果中的角色摘要
type DemoCharacter struct {
	Name    string               `json:"name"`
	Role    models.CharacterRole `json:"role"`
	Emotion models.EmotionBand   `json:"emotion"`
}

// DemoSpecSummary 演示结果中的规格摘要
type DemoSpecSummary struct {
	Variant               string   `json:"variant"`
	CharactersTransformed []string `json:"characters_transformed"`
	ControlNetMode        string   `json:"controlnet_mode"`
}

// DemoPanelResult 单个面板的演示结果
type DemoPanelResult struct {
	PanelID          string               `json:"panel_id"`
	Category         models.PanelCategory `json:"category"`
	SceneDescription string               `json:"scene_description"`
	Characters       []DemoCharacter      `json:"characters"`
	TransformSpec    DemoSpecSummary      `json:"transform_spec"`
	PromptExcerpt    string               `json:"prompt_excerpt"`
	ValidationPrompt string               `json:"validation_prompt,omitempty"`
}

// DemoReport 演示流水线输出
type DemoReport struct {
	Panels            []DemoPanelResult `json:"panels"`
	TotalPanels       int               `json:"total_panels"`
	VariantsAvailable []string          `json:"variants_available"`
}

// DemoOptions 演示参数
type DemoOptions struct {
	Variant string
	Targets []string
	// Full 为 true 时附带每个面板的审核提示词
	Full bool
}

// PipelineService 串联面板仓库、规格生成、提示词构建和审核提示词
type PipelineService struct {
	Panels      storage.PanelRepository
	Transformer *TransformService
	Prompts     *PromptService
	Validator   *ValidationService

	metrics  *utils.APIMetrics
	notifier TransformNotifier
	tracer   trace.Tracer
	logger   *utils.Logger
}

const tracerName = "github.com/thiswayup/reillustrate/internal/services"

// NewPipelineService 创建流水线服务
func NewPipelineService(
	panels storage.PanelRepository,
	transformer *TransformService,
	prompts *PromptService,
	validator *ValidationService,
	metrics *utils.APIMetrics,
) *PipelineService {
	if metrics == nil {
		metrics = utils.NewAPIMetrics()
	}
	return &PipelineService{
		Panels:      panels,
		Transformer: transformer,
		Prompts:     prompts,
		Validator:   validator,
		metrics:     metrics,
		tracer:      noop.NewTracerProvider().Tracer(tracerName),
		logger:      utils.GetLogger(),
	}
}

// SetTracerProvider 设置流水线 span 的来源
func (s *PipelineService) SetTracerProvider(tp trace.TracerProvider) {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SetNotifier 设置变换事件接收方
func (s *PipelineService) SetNotifier(n TransformNotifier) {
	s.notifier = n
}

// GetPanel 获取面板，不存在时返回 NotFound 错误
func (s *PipelineService) GetPanel(ctx context.Context, panelID string) (*models.Panel, error) {
	panel, err := s.Panels.GetPanel(ctx, panelID)
	if err != nil {
		return nil, errors.WrapError(err, "failed to load panel", errors.ErrorTypeError)
	}
	if panel == nil {
		return nil, errors.NewPanelNotFoundError(panelID)
	}
	return panel, nil
}

// ListPanelSummaries 按目录顺序返回面板摘要
func (s *PipelineService) ListPanelSummaries(ctx context.Context) ([]models.PanelSummary, error) {
	panels, err := s.Panels.ListPanels(ctx)
	if err != nil {
		return nil, errors.WrapError(err, "failed to list panels", errors.ErrorTypeError)
	}
	out := make([]models.PanelSummary, 0, len(panels))
	for i := range panels {
		out = append(out, panels[i].Summary())
	}
	return out, nil
}

// prepare 先查面板再校验变体，最后生成规格
func (s *PipelineService) prepare(ctx context.Context, panelID, variantType string, targets []string) (*models.Panel, *models.TransformationSpec, error) {
	panel, err := s.GetPanel(ctx, panelID)
	if err != nil {
		return nil, nil, err
	}
	if !models.IsValidVariant(variantType) {
		return nil, nil, errors.NewInvalidVariantError(variantType, models.ValidVariantIDs())
	}
	spec, err := s.Transformer.GenerateSpec(panel, variantType, targets)
	if err != nil {
		return nil, nil, err
	}
	return panel, spec, nil
}

// Transform 为面板生成变换规格和提示词
func (s *PipelineService) Transform(ctx context.Context, panelID, variantType string, targets []string) (_ *TransformResult, err error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.Transform", trace.WithAttributes(
		attribute.String("panel.id", panelID),
		attribute.String("variant.type", variantType),
	))
	defer func() { endSpan(span, err) }()

	panel, spec, err := s.prepare(ctx, panelID, variantType, targets)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	prompts := s.Prompts.BuildPrompt(panel, spec)
	transformed := spec.TransformedCharacters(panel)

	s.metrics.RecordTransform(variantType, string(panel.Category), len(transformed), requiresReview(panel))
	s.logger.Info("transform generated", map[string]interface{}{
		"panel_id":       panel.PanelID,
		"variant":        variantType,
		"transformed":    transformed,
		"controlnet":     spec.ControlNetMode,
		"min_similarity": spec.MinStructuralSimilarity,
	})

	if s.notifier != nil {
		s.notifier.NotifyTransform(TransformEvent{
			Type:                    "transform",
			PanelID:                 panel.PanelID,
			VariantType:             variantType,
			CharactersTransformed:   transformed,
			MinStructuralSimilarity: spec.MinStructuralSimilarity,
			Timestamp:               time.Now().UTC(),
		})
	}

	return &TransformResult{
		PanelID:       panel.PanelID,
		VariantType:   variantType,
		TransformSpec: spec,
		Prompts:       prompts,
	}, nil
}

// ValidationPrompt 生成审核提示词
func (s *PipelineService) ValidationPrompt(ctx context.Context, panelID, variantType string, targets []string) (_ *ValidationResult, err error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.ValidationPrompt", trace.WithAttributes(
		attribute.String("panel.id", panelID),
		attribute.String("variant.type", variantType),
	))
	defer func() { endSpan(span, err) }()

	panel, spec, err := s.prepare(ctx, panelID, variantType, targets)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	text, err := s.Validator.GenerateValidationPrompt(panel, spec)
	if err != nil {
		return nil, errors.NewTransformFailedError("failed to build validation prompt", err)
	}
	return &ValidationResult{
		PanelID:          panel.PanelID,
		VariantType:      variantType,
		ValidationPrompt: text,
	}, nil
}

// RunDemo 对仓库中全部面板并发执行流水线，结果保持目录顺序
func (s *PipelineService) RunDemo(ctx context.Context, opts DemoOptions) (_ *DemoReport, err error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.RunDemo")
	defer func() { endSpan(span, err) }()

	if opts.Variant == "" {
		opts.Variant = DefaultDemoVariant
	}
	if opts.Targets == nil {
		opts.Targets = DefaultDemoTargets()
	}
	if !models.IsValidVariant(opts.Variant) {
		return nil, errors.NewInvalidVariantError(opts.Variant, models.ValidVariantIDs())
	}

	panels, err := s.Panels.ListPanels(ctx)
	if err != nil {
		return nil, errors.WrapError(err, "failed to list panels", errors.ErrorTypeError)
	}

	results := make([]DemoPanelResult, len(panels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(demoWorkers)
	for i := range panels {
		panel := &panels[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.demoPanel(panel, opts)
			if err != nil {
				return errors.WrapError(err, "demo failed for panel "+panel.PanelID, errors.ErrorTypeError)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("demo pipeline completed", map[string]interface{}{
		"panels":  len(results),
		"variant": opts.Variant,
	})
	return &DemoReport{
		Panels:            results,
		TotalPanels:       len(results),
		VariantsAvailable: models.ValidVariantIDs(),
	}, nil
}

func (s *PipelineService) demoPanel(panel *models.Panel, opts DemoOptions) (DemoPanelResult, error) {
	spec, err := s.Transformer.GenerateSpec(panel, opts.Variant, demoTargetsFor(panel, opts.Targets))
	if err != nil {
		return DemoPanelResult{}, err
	}
	prompts := s.Prompts.BuildPrompt(panel, spec)

	res := DemoPanelResult{
		PanelID:          panel.PanelID,
		Category:         panel.Category,
		SceneDescription: panel.SceneDescription,
		Characters:       make([]DemoCharacter, 0, len(panel.Characters)),
		TransformSpec: DemoSpecSummary{
			Variant:               spec.TargetVariant,
			CharactersTransformed: spec.TransformedCharacters(panel),
			ControlNetMode:        spec.ControlNetMode,
		},
		PromptExcerpt: Excerpt(prompts.PositivePrompt, demoExcerptRunes),
	}
	for _, c := range panel.Characters {
		res.Characters = append(res.Characters, DemoCharacter{Name: c.Name, Role: c.Role, Emotion: c.Emotion})
	}

	if opts.Full {
		text, err := s.Validator.GenerateValidationPrompt(panel, spec)
		if err != nil {
			return DemoPanelResult{}, errors.NewTransformFailedError("failed to build validation prompt", err)
		}
		res.ValidationPrompt = text
	}
	return res, nil
}

// demoTargetsFor 只保留面板中存在的演示目标，结果始终非 nil
func demoTargetsFor(panel *models.Panel, targets []string) []string {
	out := make([]string, 0, len(targets))
	for _, name := range targets {
		if _, ok := panel.FindCharacter(name); ok {
			out = append(out, name)
		}
	}
	return out
}

func (s *PipelineService) recordFailure(err error) {
	switch {
	case errors.IsNotFoundError(err):
		s.metrics.RecordError("not_found", "pipeline")
	case errors.IsInvalidVariantError(err):
		s.metrics.RecordError("invalid_variant", "pipeline")
	case errors.IsValidationError(err):
		s.metrics.RecordError("validation", "pipeline")
	default:
		s.metrics.RecordError("processing", "pipeline")
	}
}

// Excerpt 截取前 n 个字符并追加 "..."
func Excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes) + "..."
}
