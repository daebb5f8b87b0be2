// internal/services/analyzer_service.go
package services

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/thiswayup/reillustrate/internal/errors"
	"github.com/thiswayup/reillustrate/internal/models"
)

//go:embed templates/analysis.md
var analysisPrompt string

// 分析响应格式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// GeneratedPanelIDPrefix 自动生成的面板 id 前缀
const GeneratedPanelIDPrefix = "panel_"

// analysisCharacter 视觉模型返回的角色，字段名与分析提示词一致
type analysisCharacter struct {
	Role           string `json:"role" yaml:"role"`
	Name           string `json:"name" yaml:"name"`
	Gender         string `json:"gender" yaml:"gender"`
	ApproximateAge string `json:"approximate_age" yaml:"approximate_age"`
	Emotion        string `json:"emotion" yaml:"emotion"`
	Expression     string `json:"expression" yaml:"expression"`
	Pose           string `json:"pose" yaml:"pose"`
	Clothing       string `json:"clothing" yaml:"clothing"`
	Position       string `json:"position" yaml:"position"`
	Speaking       bool   `json:"speaking" yaml:"speaking"`
}

type analysisElement struct {
	Type         string `json:"type" yaml:"type"`
	Description  string `json:"description" yaml:"description"`
	Purpose      string `json:"purpose" yaml:"purpose"`
	MustPreserve *bool  `json:"must_preserve" yaml:"must_preserve"`
}

type analysisResponse struct {
	PanelID             string              `json:"panel_id" yaml:"panel_id"`
	SourceFile          string              `json:"source_file" yaml:"source_file"`
	PageNumber          int                 `json:"page_number" yaml:"page_number"`
	PanelPosition       string              `json:"panel_position" yaml:"panel_position"`
	Category            string              `json:"category" yaml:"category"`
	SceneDescription    string              `json:"scene_description" yaml:"scene_description"`
	Setting             string              `json:"setting" yaml:"setting"`
	Lighting            string              `json:"lighting" yaml:"lighting"`
	Mood                string              `json:"mood" yaml:"mood"`
	Characters          []analysisCharacter `json:"characters" yaml:"characters"`
	NarrativeStage      string              `json:"narrative_stage" yaml:"narrative_stage"`
	TherapeuticSkill    string              `json:"therapeutic_skill" yaml:"therapeutic_skill"`
	TherapeuticElements []analysisElement   `json:"therapeutic_elements" yaml:"therapeutic_elements"`
	SpeechBubbles       []string            `json:"speech_bubbles" yaml:"speech_bubbles"`
	TextOverlays        []string            `json:"text_overlays" yaml:"text_overlays"`
	LockedElements      []string            `json:"locked_elements" yaml:"locked_elements"`
	AdaptableElements   []string            `json:"adaptable_elements" yaml:"adaptable_elements"`

	RequiredEmotionPreservation     *bool `json:"required_emotion_preservation" yaml:"required_emotion_preservation"`
	RequiredCompositionPreservation *bool `json:"required_composition_preservation" yaml:"required_composition_preservation"`
	RequiresClinicalReview          bool  `json:"requires_clinical_review" yaml:"requires_clinical_review"`
}

// AnalyzerService 面板分析契约：提供分析提示词，并把视觉模型的响应转换为面板
type AnalyzerService struct{}

// NewAnalyzerService 创建分析服务
func NewAnalyzerService() *AnalyzerService {
	return &AnalyzerService{}
}

// AnalysisPrompt 返回固定的面板分析提示词
func (s *AnalyzerService) AnalysisPrompt() string {
	return strings.TrimSuffix(analysisPrompt, "\n")
}

// ParseAnalysisResponse 解析视觉模型响应并校验。
// 枚举值忽略大小写，缺省分类为 client_single。
// 分析提示词不要求模型给出 panel_id：响应缺少时依次使用调用方的 panelID 和生成的 id。
func (s *AnalyzerService) ParseAnalysisResponse(data []byte, format, panelID string) (*models.Panel, error) {
	data = stripCodeFence(data)

	var resp analysisResponse
	switch strings.ToLower(format) {
	case "", FormatJSON:
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, errors.NewValidationError("invalid analysis response JSON", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &resp); err != nil {
			return nil, errors.NewValidationError("invalid analysis response YAML", err)
		}
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported analysis format %q", format), nil)
	}

	if strings.TrimSpace(resp.PanelID) == "" {
		resp.PanelID = strings.TrimSpace(panelID)
	}
	if resp.PanelID == "" {
		resp.PanelID = generatedPanelID()
	}

	panel, err := resp.toPanel()
	if err != nil {
		return nil, errors.NewPanelInvalidError("invalid analysis response", err)
	}
	if err := panel.Validate(); err != nil {
		return nil, errors.NewPanelInvalidError("analysis response failed validation", err)
	}
	return panel, nil
}

func (r *analysisResponse) toPanel() (*models.Panel, error) {
	category := normalizeEnum(r.Category)
	if category == "" {
		category = string(models.CategoryClientSingle)
	}
	cat, err := models.ParsePanelCategory(category)
	if err != nil {
		return nil, err
	}

	p := models.NewPanelDefaults()
	p.PanelID = r.PanelID
	p.SourceFile = r.SourceFile
	p.PageNumber = r.PageNumber
	p.PanelPosition = r.PanelPosition
	p.Category = cat
	p.SceneDescription = r.SceneDescription
	p.Setting = r.Setting
	p.Lighting = r.Lighting
	p.Mood = r.Mood
	p.NarrativeStage = r.NarrativeStage
	p.TherapeuticSkill = r.TherapeuticSkill
	p.SpeechBubbles = nonNil(r.SpeechBubbles)
	p.TextOverlays = nonNil(r.TextOverlays)
	p.LockedElements = nonNil(r.LockedElements)
	p.AdaptableElements = nonNil(r.AdaptableElements)
	p.RequiresClinicalReview = r.RequiresClinicalReview
	if r.RequiredEmotionPreservation != nil {
		p.RequiredEmotionPreservation = *r.RequiredEmotionPreservation
	}
	if r.RequiredCompositionPreservation != nil {
		p.RequiredCompositionPreservation = *r.RequiredCompositionPreservation
	}

	p.Characters = make([]models.Character, 0, len(r.Characters))
	for i, c := range r.Characters {
		role, err := models.ParseCharacterRole(normalizeEnum(c.Role))
		if err != nil {
			return nil, fmt.Errorf("characters[%d]: %w", i, err)
		}
		emotion, err := models.ParseEmotionBand(normalizeEnum(c.Emotion))
		if err != nil {
			return nil, fmt.Errorf("characters[%d]: %w", i, err)
		}
		p.Characters = append(p.Characters, models.Character{
			Role:                  role,
			Name:                  c.Name,
			Gender:                c.Gender,
			ApproximateAge:        c.ApproximateAge,
			Emotion:               emotion,
			ExpressionDescription: c.Expression,
			PoseDescription:       c.Pose,
			ClothingDescription:   c.Clothing,
			PositionInFrame:       c.Position,
			IsSpeaking:            c.Speaking,
		})
	}

	p.TherapeuticElements = make([]models.TherapeuticElement, 0, len(r.TherapeuticElements))
	for _, e := range r.TherapeuticElements {
		mustPreserve := true
		if e.MustPreserve != nil {
			mustPreserve = *e.MustPreserve
		}
		p.TherapeuticElements = append(p.TherapeuticElements, models.TherapeuticElement{
			ElementType:        e.Type,
			ContentDescription: e.Description,
			TherapeuticPurpose: e.Purpose,
			MustPreserve:       mustPreserve,
		})
	}
	return &p, nil
}

// generatedPanelID 为未标识的分析结果生成面板 id
func generatedPanelID() string {
	return GeneratedPanelIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// stripCodeFence 去掉模型常见的 ``` 代码块包裹
func stripCodeFence(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("```")) {
		return data
	}
	trimmed = trimmed[3:]
	if nl := bytes.IndexByte(trimmed, '\n'); nl >= 0 {
		trimmed = trimmed[nl+1:]
	}
	trimmed = bytes.TrimSuffix(bytes.TrimSpace(trimmed), []byte("```"))
	return bytes.TrimSpace(trimmed)
}
