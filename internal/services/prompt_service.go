// internal/services/prompt_service.go
package services

import (
	"strconv"
	"strings"

	"github.com/thiswayup/reillustrate/internal/models"
)

// StylePrompt 固定的画风前言
const StylePrompt = "Professional illustration in clean vector style with consistent line weights,\n" +
	"flat color fills with subtle gradients for shading, warm but professional color palette.\n" +
	"Style matches THIS WAY UP CBT course illustrations."

// NegativePrompt 固定的负向提示词，与面板内容无关
const NegativePrompt = "photorealistic, 3d render, photograph, blurry, low quality,\n" +
	"distorted faces, extra limbs, violence, gore, nsfw, weapons, blood,\n" +
	"medical emergency, self-harm, disturbing imagery, scary, horror"

const noTherapeuticElements = "None specific"

// PromptService 从面板和变换规格构建生成提示词。纯函数，无内部状态。
type PromptService struct{}

// NewPromptService 创建提示词服务
func NewPromptService() *PromptService {
	return &PromptService{}
}

// BuildPrompt 组装完整的提示词包
func (s *PromptService) BuildPrompt(panel *models.Panel, spec *models.TransformationSpec) *models.PromptBundle {
	lines := []string{
		StylePrompt,
		"",
		"Scene:",
		"Clinical therapy illustration depicting: " + panel.SceneDescription,
		"Setting: " + panel.Setting,
		"Lighting: " + panel.Lighting,
		"Mood: " + panel.Mood,
		"",
		"Characters:",
	}
	for _, c := range panel.Characters {
		lines = append(lines, characterLine(c, spec.CharacterTransforms[c.Name]))
	}

	lines = append(lines, "", "Therapeutic elements to preserve:")
	preserved := panel.PreservedElements()
	if len(preserved) == 0 {
		lines = append(lines, noTherapeuticElements)
	}
	for _, e := range preserved {
		lines = append(lines, "MUST INCLUDE: "+e.ElementType+" - "+e.ContentDescription)
	}

	return &models.PromptBundle{
		PositivePrompt:   strings.Join(lines, "\n"),
		NegativePrompt:   NegativePrompt,
		ControlNetPrompt: controlNetPrompt(spec),
		ValidationNotes:  validationNotes(panel, spec),
		GenerationParams: models.GenerationParams{
			ControlNetMode:     spec.ControlNetMode,
			ControlNetStrength: spec.ControlNetStrength,
			DenoiseStrength:    spec.DenoiseStrength,
		},
	}
}

// characterLine 身份相关字段取自变换记录，情绪、姿态、服装和位置始终取自源角色
func characterLine(c models.Character, t models.CharacterTransform) string {
	var b strings.Builder
	if len(t) > 0 {
		b.WriteString(t.Get(models.AttrNewName, c.Name))
		b.WriteString(": ")
		b.WriteString(t.Get(models.AttrGender, c.Gender))
		b.WriteString(", ")
		b.WriteString(t.Get(models.AttrApproximateAge, c.ApproximateAge))
		if skin := t.Get(models.AttrSkinTone, ""); skin != "" {
			b.WriteString(", " + skin + " skin tone")
		}
		if features := t.Get(models.AttrFeatures, ""); features != "" {
			b.WriteString(", " + features)
		}
	} else {
		b.WriteString(c.Name + ": " + c.Gender + ", " + c.ApproximateAge)
	}

	b.WriteString(", expression showing " + string(c.Emotion) + " (" + c.ExpressionDescription + ")")
	b.WriteString(", " + c.PoseDescription)
	b.WriteString(", wearing " + c.ClothingDescription)
	b.WriteString(", positioned " + c.PositionInFrame)
	return b.String()
}

func controlNetPrompt(spec *models.TransformationSpec) string {
	return "Use " + spec.ControlNetMode + " ControlNet at strength " + formatFloat(spec.ControlNetStrength) + ".\n" +
		"Denoise strength: " + formatFloat(spec.DenoiseStrength) + "\n" +
		"Preserve exact composition and pose from source image.\n" +
		"Character positions and spatial relationships must match source exactly."
}

func validationNotes(panel *models.Panel, spec *models.TransformationSpec) string {
	notes := []string{
		"Structural similarity must be >= " + formatFloat(spec.MinStructuralSimilarity),
		"Character emotions must match source panel",
		"All therapeutic elements must be present and correct",
		"Composition and pose must match source",
	}
	if len(spec.CharacterTransforms) > 0 {
		notes = append(notes, "Verify character transformations applied: "+
			strings.Join(spec.TransformedCharacters(panel), ", "))
	}
	return strings.Join(notes, "\n")
}

// formatFloat 最短表示，如 0.8、0.85
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
