// internal/models/transform.go
package models

// 变换记录中的属性键
const (
	AttrGender          = "gender"
	AttrNewName         = "new_name"
	AttrAppearanceNotes = "appearance_notes"
	AttrSkinTone        = "skin_tone"
	AttrFeatures        = "features"
	AttrApproximateAge  = "approximate_age"
	AttrAgeRange        = "age_range"
	AttrPreserveEmotion = "preserve_emotion"
	AttrPreservePose    = "preserve_pose"
)

// ControlNet 结构引导模式
const (
	ControlNetCanny    = "canny"
	ControlNetOpenPose = "openpose"
	ControlNetLineart  = "lineart"
)

// 结构相似度下限
const (
	SimilarityClinicalReview = 0.85
	SimilarityStandard       = 0.80
)

// CharacterTransform 单个角色的属性变更：属性名 -> 新值
type CharacterTransform map[string]string

// Get 读取属性，不存在时返回 fallback
func (t CharacterTransform) Get(attr, fallback string) string {
	if v, ok := t[attr]; ok {
		return v
	}
	return fallback
}

// TransformationSpec 变换规格：一份计划而非渲染产物。
// 每次请求重新生成，从不持久化，也从不修改源面板。
type TransformationSpec struct {
	SourcePanelID string `json:"source_panel_id"`
	TargetVariant string `json:"target_variant"`

	// 仅包含被选中的角色；缺失即保持原样
	CharacterTransforms map[string]CharacterTransform `json:"character_transforms"`

	// 保留项，任何变体都不得放宽
	PreservePose                bool `json:"preserve_pose"`
	PreserveExpressionType      bool `json:"preserve_expression_type"`
	PreserveComposition         bool `json:"preserve_composition"`
	PreserveLighting            bool `json:"preserve_lighting"`
	PreserveTherapeuticElements bool `json:"preserve_therapeutic_elements"`

	// 生成参数
	ControlNetMode     string  `json:"controlnet_mode"`
	ControlNetStrength float64 `json:"controlnet_strength"`
	DenoiseStrength    float64 `json:"denoise_strength"` // 越低越接近原图

	// 校验阈值
	MinStructuralSimilarity float64 `json:"min_structural_similarity"`
	EmotionMustMatch        bool    `json:"emotion_must_match"`
}

// TransformedCharacters 按面板顺序返回被变换的角色名
func (s *TransformationSpec) TransformedCharacters(panel *Panel) []string {
	names := make([]string, 0, len(s.CharacterTransforms))
	for _, c := range panel.Characters {
		if _, ok := s.CharacterTransforms[c.Name]; ok {
			names = append(names, c.Name)
		}
	}
	return names
}

// GenerationParams 提供给图像生成后端的扁平参数
type GenerationParams struct {
	ControlNetMode     string  `json:"controlnet_mode"`
	ControlNetStrength float64 `json:"controlnet_strength"`
	DenoiseStrength    float64 `json:"denoise_strength"`
}

// PromptBundle 提示词包
type PromptBundle struct {
	PositivePrompt   string           `json:"positive_prompt"`
	NegativePrompt   string           `json:"negative_prompt"`
	ControlNetPrompt string           `json:"controlnet_prompt"`
	ValidationNotes  string           `json:"validation_notes"`
	GenerationParams GenerationParams `json:"generation_params"`
}
