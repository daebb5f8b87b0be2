// internal/models/variant.go
package models

import "strings"

// VariantFamily 变体族
type VariantFamily string

const (
	FamilyGender    VariantFamily = "gender"
	FamilyEthnicity VariantFamily = "ethnicity"
	FamilyAge       VariantFamily = "age"
	FamilyUnknown   VariantFamily = "unknown"
)

// 变体 ID 前缀
const (
	prefixGenderSwap = "gender_swap"
	prefixDiverse    = "diverse"
	prefixAge        = "age"
)

// 已知变体 ID
const (
	VariantGenderSwapFemale = "gender_swap_female"
	VariantGenderSwapMale   = "gender_swap_male"
	VariantDiverseV1        = "diverse_v1"
	VariantDiverseV2        = "diverse_v2"
	VariantDiverseV3        = "diverse_v3"
	VariantAgeYounger       = "age_younger"
	VariantAgeOlder         = "age_older"
)

// FamilyOf 按前缀识别变体族
func FamilyOf(variantType string) VariantFamily {
	switch {
	case strings.HasPrefix(variantType, prefixGenderSwap):
		return FamilyGender
	case strings.HasPrefix(variantType, prefixDiverse):
		return FamilyEthnicity
	case strings.HasPrefix(variantType, prefixAge):
		return FamilyAge
	}
	return FamilyUnknown
}

// Variant 变体目录条目
type Variant struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Type        VariantFamily `json:"type"`
}

var variantCatalog = []Variant{
	{ID: VariantGenderSwapFemale, Name: "Female Client", Description: "Transform male client (Leo) to female (Leah)", Type: FamilyGender},
	{ID: VariantGenderSwapMale, Name: "Male Partner", Description: "Transform female partner (Ali) to male (Alex)", Type: FamilyGender},
	{ID: VariantDiverseV1, Name: "South Asian", Description: "South Asian features and skin tone", Type: FamilyEthnicity},
	{ID: VariantDiverseV2, Name: "African", Description: "African features and skin tone", Type: FamilyEthnicity},
	{ID: VariantDiverseV3, Name: "East Asian", Description: "East Asian features and skin tone", Type: FamilyEthnicity},
	{ID: VariantAgeYounger, Name: "Younger (25-35)", Description: "Young adult presentation", Type: FamilyAge},
	{ID: VariantAgeOlder, Name: "Older (65-75)", Description: "Senior presentation", Type: FamilyAge},
}

// VariantCatalog 返回固定的 7 个变体（副本）
func VariantCatalog() []Variant {
	out := make([]Variant, len(variantCatalog))
	copy(out, variantCatalog)
	return out
}

// ValidVariantIDs 按目录顺序返回全部变体 ID
func ValidVariantIDs() []string {
	ids := make([]string, 0, len(variantCatalog))
	for _, v := range variantCatalog {
		ids = append(ids, v.ID)
	}
	return ids
}

// IsValidVariant 检查变体是否在封闭目录中
func IsValidVariant(id string) bool {
	for _, v := range variantCatalog {
		if v.ID == id {
			return true
		}
	}
	return false
}
