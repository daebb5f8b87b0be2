// internal/services/validation_service.go
package services

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/thiswayup/reillustrate/internal/models"
)

//go:embed templates/validation.tmpl
var validationTemplate string

// validationData 模板数据
type validationData struct {
	PanelID          string
	Category         models.PanelCategory
	Scene            string
	Characters       []string
	ElementTypes     []string
	LockedElements   []string
	Variant          string
	CharacterChanges string
	ControlNetMode   string
	MinSimilarity    string
}

// ValidationService 生成供人工或视觉模型使用的输出审核提示词。
// 输出只读，本系统不会解析回来。
type ValidationService struct {
	tmpl *template.Template
}

// NewValidationService 解析内嵌的审核模板
func NewValidationService() (*ValidationService, error) {
	if validationTemplate == "" {
		return nil, fmt.Errorf("审核模板为空")
	}
	tmpl, err := template.New("validation").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(validationTemplate)
	if err != nil {
		return nil, fmt.Errorf("解析审核模板失败: %w", err)
	}
	return &ValidationService{tmpl: tmpl}, nil
}

// GenerateValidationPrompt 生成对比源图与生成图的审核提示词
func (s *ValidationService) GenerateValidationPrompt(panel *models.Panel, spec *models.TransformationSpec) (string, error) {
	changes, err := marshalTransforms(spec.CharacterTransforms)
	if err != nil {
		return "", err
	}

	data := validationData{
		PanelID:          panel.PanelID,
		Category:         panel.Category,
		Scene:            panel.SceneDescription,
		Characters:       make([]string, 0, len(panel.Characters)),
		ElementTypes:     make([]string, 0, len(panel.TherapeuticElements)),
		LockedElements:   panel.LockedElements,
		Variant:          spec.TargetVariant,
		CharacterChanges: changes,
		ControlNetMode:   spec.ControlNetMode,
		MinSimilarity:    formatFloat(spec.MinStructuralSimilarity),
	}
	for _, c := range panel.Characters {
		data.Characters = append(data.Characters, fmt.Sprintf("%s (%s)", c.Name, c.Emotion))
	}
	for _, e := range panel.TherapeuticElements {
		data.ElementTypes = append(data.ElementTypes, e.ElementType)
	}

	var sb strings.Builder
	if err := s.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("执行审核模板失败: %w", err)
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}

// marshalTransforms 缩进 JSON，键按字母排序
func marshalTransforms(transforms map[string]models.CharacterTransform) (string, error) {
	if transforms == nil {
		transforms = map[string]models.CharacterTransform{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(transforms); err != nil {
		return "", fmt.Errorf("序列化角色变换失败: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
