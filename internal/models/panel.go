// internal/models/panel.go
package models

import (
	"bytes"
	"encoding/json"
)

// Panel 描述一格插画的完整元数据，创建后只读
type Panel struct {
	PanelID       string `json:"panel_id" yaml:"panel_id" validate:"required"`
	SourceFile    string `json:"source_file" yaml:"source_file"`
	PageNumber    int    `json:"page_number" yaml:"page_number" validate:"gte=0"`
	PanelPosition string `json:"panel_position" yaml:"panel_position"` // 如 top_left, bottom_right

	// 分类
	Category PanelCategory `json:"category" yaml:"category" validate:"required,panel_category"`

	// 场景描述
	SceneDescription string `json:"scene_description" yaml:"scene_description"`
	Setting          string `json:"setting" yaml:"setting"`
	Lighting         string `json:"lighting" yaml:"lighting"`
	Mood             string `json:"mood" yaml:"mood"`

	// 角色，顺序即画面中的列举顺序
	Characters []Character `json:"characters" yaml:"characters" validate:"dive"`

	// 治疗内容
	NarrativeStage      string               `json:"narrative_stage" yaml:"narrative_stage"`
	TherapeuticSkill    string               `json:"therapeutic_skill" yaml:"therapeutic_skill"`
	TherapeuticElements []TherapeuticElement `json:"therapeutic_elements" yaml:"therapeutic_elements" validate:"dive"`

	// 对白与文字
	SpeechBubbles []string `json:"speech_bubbles" yaml:"speech_bubbles"`
	TextOverlays  []string `json:"text_overlays" yaml:"text_overlays"`

	// 变换约束
	LockedElements    []string `json:"locked_elements" yaml:"locked_elements"`
	AdaptableElements []string `json:"adaptable_elements" yaml:"adaptable_elements"`

	// 校验要求
	RequiredEmotionPreservation     bool `json:"required_emotion_preservation" yaml:"required_emotion_preservation"`
	RequiredCompositionPreservation bool `json:"required_composition_preservation" yaml:"required_composition_preservation"`
	RequiresClinicalReview          bool `json:"requires_clinical_review" yaml:"requires_clinical_review"`
}

// Character 面板中的一个人物
type Character struct {
	Role                  CharacterRole `json:"role" yaml:"role" validate:"required,character_role"`
	Name                  string        `json:"name" yaml:"name" validate:"required"`
	Gender                string        `json:"gender" yaml:"gender"`
	ApproximateAge        string        `json:"approximate_age" yaml:"approximate_age"`
	Emotion               EmotionBand   `json:"emotion" yaml:"emotion" validate:"required,emotion_band"`
	ExpressionDescription string        `json:"expression_description" yaml:"expression_description"`
	PoseDescription       string        `json:"pose_description" yaml:"pose_description"`
	ClothingDescription   string        `json:"clothing_description" yaml:"clothing_description"`
	PositionInFrame       string        `json:"position_in_frame" yaml:"position_in_frame"` // left, center, right, foreground...
	IsSpeaking            bool          `json:"is_speaking" yaml:"is_speaking"`
}

// TherapeuticElement 承载临床意义的非人物内容（思维气泡、图表、工作表等）
type TherapeuticElement struct {
	ElementType        string `json:"element_type" yaml:"element_type" validate:"required"`
	ContentDescription string `json:"content_description" yaml:"content_description"`
	TherapeuticPurpose string `json:"therapeutic_purpose" yaml:"therapeutic_purpose"`
	MustPreserve       bool   `json:"must_preserve" yaml:"must_preserve"`
}

// PanelSummary 用于面板列表
type PanelSummary struct {
	PanelID                string        `json:"panel_id"`
	Category               PanelCategory `json:"category"`
	SceneDescription       string        `json:"scene_description"`
	SourceFile             string        `json:"source_file"`
	Characters             []string      `json:"characters"`
	RequiresClinicalReview bool          `json:"requires_clinical_review"`
}

// Summary 生成列表摘要
func (p *Panel) Summary() PanelSummary {
	return PanelSummary{
		PanelID:                p.PanelID,
		Category:               p.Category,
		SceneDescription:       p.SceneDescription,
		SourceFile:             p.SourceFile,
		Characters:             p.CharacterNames(),
		RequiresClinicalReview: p.RequiresClinicalReview,
	}
}

// CharacterNames 按面板顺序返回角色名
func (p *Panel) CharacterNames() []string {
	names := make([]string, 0, len(p.Characters))
	for _, c := range p.Characters {
		names = append(names, c.Name)
	}
	return names
}

// FindCharacter 按名称查找角色
func (p *Panel) FindCharacter(name string) (Character, bool) {
	for _, c := range p.Characters {
		if c.Name == name {
			return c, true
		}
	}
	return Character{}, false
}

// CharactersWithRole 返回指定身份的角色名
func (p *Panel) CharactersWithRole(role CharacterRole) []string {
	var names []string
	for _, c := range p.Characters {
		if c.Role == role {
			names = append(names, c.Name)
		}
	}
	return names
}

// PreservedElements 返回 must_preserve 的治疗元素
func (p *Panel) PreservedElements() []TherapeuticElement {
	var out []TherapeuticElement
	for _, e := range p.TherapeuticElements {
		if e.MustPreserve {
			out = append(out, e)
		}
	}
	return out
}

// decodeStrict 拒绝未知字段，与 YAML 目录的 KnownFields 行为一致
func decodeStrict(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// UnmarshalJSON 缺省字段按默认值填充，未知字段报错
func (p *Panel) UnmarshalJSON(data []byte) error {
	type raw Panel
	r := raw(NewPanelDefaults())
	if err := decodeStrict(data, &r); err != nil {
		return err
	}
	*p = Panel(r)
	return nil
}

// UnmarshalYAML 缺省字段按默认值填充
func (p *Panel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw Panel
	r := raw(NewPanelDefaults())
	if err := unmarshal(&r); err != nil {
		return err
	}
	*p = Panel(r)
	return nil
}

// UnmarshalJSON must_preserve 缺省为 true，未知字段报错
func (t *TherapeuticElement) UnmarshalJSON(data []byte) error {
	type raw TherapeuticElement
	r := raw{MustPreserve: true}
	if err := decodeStrict(data, &r); err != nil {
		return err
	}
	*t = TherapeuticElement(r)
	return nil
}

// UnmarshalYAML must_preserve 缺省为 true
func (t *TherapeuticElement) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type raw TherapeuticElement
	r := raw{MustPreserve: true}
	if err := unmarshal(&r); err != nil {
		return err
	}
	*t = TherapeuticElement(r)
	return nil
}

// NewPanelDefaults 返回带默认保留标志的空面板
func NewPanelDefaults() Panel {
	return Panel{
		RequiredEmotionPreservation:     true,
		RequiredCompositionPreservation: true,
	}
}
