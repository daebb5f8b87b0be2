// internal/services/transform_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/thiswayup/reillustrate/internal/errors"
	"github.com/thiswayup/reillustrate/internal/models"
)

// genderPreset 性别变换预设
type genderPreset struct {
	gender          string
	nameTransform   map[string]string
	appearanceNotes string
}

// ethnicityPreset 族裔变换预设
type ethnicityPreset struct {
	skinTone string
	features string
}

// agePreset 年龄变换预设
type agePreset struct {
	approximateAge string
	ageRange       string
}

// 预设表只读，仅通过 lookup 函数访问
var (
	maleToFemale = genderPreset{
		gender:          "female",
		nameTransform:   map[string]string{"Leo": "Leah", "Ian": "Dr. Sarah"},
		appearanceNotes: "Transform to female presentation while preserving age, expression, and pose",
	}
	femaleToMale = genderPreset{
		gender:          "male",
		nameTransform:   map[string]string{"Ali": "Alex", "Rebecca": "Robert"},
		appearanceNotes: "Transform to male presentation while preserving age, expression, and pose",
	}

	ethnicityPresets = map[string]ethnicityPreset{
		models.VariantDiverseV1: {skinTone: "medium brown", features: "South Asian features"},
		models.VariantDiverseV2: {skinTone: "dark brown", features: "African features"},
		models.VariantDiverseV3: {skinTone: "light", features: "East Asian features"},
	}

	youngerPreset = agePreset{approximateAge: "young_adult", ageRange: "25-35"}
	olderPreset   = agePreset{approximateAge: "senior", ageRange: "65-75"}
)

func lookupGenderPreset(variantType string) genderPreset {
	if strings.Contains(variantType, "female") {
		return maleToFemale
	}
	return femaleToMale
}

// 未知的 diverse_* 回退到 v1
func lookupEthnicityPreset(variantType string) ethnicityPreset {
	if p, ok := ethnicityPresets[variantType]; ok {
		return p
	}
	return ethnicityPresets[models.VariantDiverseV1]
}

func lookupAgePreset(variantType string) agePreset {
	if strings.Contains(variantType, "younger") {
		return youngerPreset
	}
	return olderPreset
}

// guidance 结构引导参数
type guidance struct {
	mode     string
	strength float64
	denoise  float64
}

// guidanceFor 按面板分类选择结构引导，每个分类都必须在此列出
func guidanceFor(category models.PanelCategory) (guidance, error) {
	switch category {
	case models.CategoryConceptualDiagram, models.CategoryDiagramOnly:
		// 图表需要精确线条
		return guidance{mode: models.ControlNetCanny, strength: 0.9, denoise: 0.3}, nil
	case models.CategoryDialogueTherapy, models.CategoryDialogueDomestic:
		// 多人对话需要保留姿态
		return guidance{mode: models.ControlNetOpenPose, strength: 0.75, denoise: 0.45}, nil
	case models.CategoryNarratorSingle, models.CategoryTherapistSingle,
		models.CategoryClientSingle, models.CategoryMultiCharacter:
		return guidance{mode: models.ControlNetLineart, strength: 0.8, denoise: 0.4}, nil
	default:
		return guidance{}, errors.NewValidationError(fmt.Sprintf("unknown panel category %q", category), nil)
	}
}

// requiresReview 显式标记或概念图表任一满足即需临床复核
func requiresReview(panel *models.Panel) bool {
	return panel.RequiresClinicalReview || panel.Category == models.CategoryConceptualDiagram
}

// TransformService 变换规格生成器。无状态，可并发使用。
type TransformService struct {
	// Strict 为 true 时，未知变体族和不存在的目标角色直接报错；
	// 为 false 时未知变体族返回空变换
	Strict bool
}

// NewTransformService 创建规格生成器
func NewTransformService(strict bool) *TransformService {
	return &TransformService{Strict: strict}
}

// GenerateSpec 为面板生成变换规格。
// targets 为 nil 时选择所有 client 身份的角色；空切片表示不变换任何角色。
func (s *TransformService) GenerateSpec(panel *models.Panel, variantType string, targets []string) (*models.TransformationSpec, error) {
	if panel == nil {
		return nil, errors.NewValidationError("panel is required", nil)
	}

	g, err := guidanceFor(panel.Category)
	if err != nil {
		return nil, err
	}

	targetSet, err := s.resolveTargets(panel, targets)
	if err != nil {
		return nil, err
	}

	transforms, err := s.buildTransforms(panel, variantType, targetSet)
	if err != nil {
		return nil, err
	}

	similarity := models.SimilarityStandard
	if requiresReview(panel) {
		similarity = models.SimilarityClinicalReview
	}

	return &models.TransformationSpec{
		SourcePanelID:               panel.PanelID,
		TargetVariant:               variantType,
		CharacterTransforms:         transforms,
		PreservePose:                true,
		PreserveExpressionType:      true,
		PreserveComposition:         true,
		PreserveLighting:            true,
		PreserveTherapeuticElements: true,
		ControlNetMode:              g.mode,
		ControlNetStrength:          g.strength,
		DenoiseStrength:             g.denoise,
		MinStructuralSimilarity:     similarity,
		EmotionMustMatch:            true,
	}, nil
}

func (s *TransformService) resolveTargets(panel *models.Panel, targets []string) (map[string]bool, error) {
	if targets == nil {
		targets = panel.CharactersWithRole(models.RoleClient)
	} else if s.Strict {
		for _, name := range targets {
			if _, ok := panel.FindCharacter(name); !ok {
				return nil, errors.NewValidationError(
					fmt.Sprintf("character %q not found in panel %s", name, panel.PanelID), nil)
			}
		}
	}

	set := make(map[string]bool, len(targets))
	for _, name := range targets {
		set[name] = true
	}
	return set, nil
}

func (s *TransformService) buildTransforms(panel *models.Panel, variantType string, targets map[string]bool) (map[string]models.CharacterTransform, error) {
	transforms := make(map[string]models.CharacterTransform)

	var derive func(c models.Character) models.CharacterTransform
	switch models.FamilyOf(variantType) {
	case models.FamilyGender:
		preset := lookupGenderPreset(variantType)
		derive = func(c models.Character) models.CharacterTransform {
			newName, ok := preset.nameTransform[c.Name]
			if !ok {
				newName = c.Name
			}
			return models.CharacterTransform{
				models.AttrGender:          preset.gender,
				models.AttrNewName:         newName,
				models.AttrAppearanceNotes: preset.appearanceNotes,
			}
		}
	case models.FamilyEthnicity:
		preset := lookupEthnicityPreset(variantType)
		derive = func(models.Character) models.CharacterTransform {
			return models.CharacterTransform{
				models.AttrSkinTone: preset.skinTone,
				models.AttrFeatures: preset.features,
			}
		}
	case models.FamilyAge:
		preset := lookupAgePreset(variantType)
		derive = func(models.Character) models.CharacterTransform {
			return models.CharacterTransform{
				models.AttrApproximateAge: preset.approximateAge,
				models.AttrAgeRange:       preset.ageRange,
			}
		}
	case models.FamilyUnknown:
		if s.Strict {
			return nil, errors.NewValidationError(fmt.Sprintf("unrecognized variant family for %q", variantType), nil)
		}
		return transforms, nil
	}

	for _, c := range panel.Characters {
		if !targets[c.Name] {
			continue
		}
		t := derive(c)
		// 情绪和姿态原样带入，提示词构建时再次以源角色为准
		t[models.AttrPreserveEmotion] = string(c.Emotion)
		t[models.AttrPreservePose] = c.PoseDescription
		transforms[c.Name] = t
	}
	return transforms, nil
}
