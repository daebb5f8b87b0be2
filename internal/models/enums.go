// internal/models/enums.go
package models

import (
	"encoding/json"
	"fmt"
)

// PanelCategory 面板分类，按变换难度划分
type PanelCategory string

const (
	CategoryNarratorSingle    PanelCategory = "narrator_single"    // 叙述者单人直接面向读者
	CategoryTherapistSingle   PanelCategory = "therapist_single"   // 治疗师单人讲解
	CategoryClientSingle      PanelCategory = "client_single"      // 来访者单人
	CategoryDialogueTherapy   PanelCategory = "dialogue_therapy"   // 来访者与治疗师对话
	CategoryDialogueDomestic  PanelCategory = "dialogue_domestic"  // 来访者与伴侣/家人
	CategoryMultiCharacter    PanelCategory = "multi_character"    // 三人及以上
	CategoryConceptualDiagram PanelCategory = "conceptual_diagram" // 人物 + 图表/隐喻
	CategoryDiagramOnly       PanelCategory = "diagram_only"       // 纯图表/文字
)

// AllPanelCategories 按声明顺序返回全部分类
func AllPanelCategories() []PanelCategory {
	return []PanelCategory{
		CategoryNarratorSingle,
		CategoryTherapistSingle,
		CategoryClientSingle,
		CategoryDialogueTherapy,
		CategoryDialogueDomestic,
		CategoryMultiCharacter,
		CategoryConceptualDiagram,
		CategoryDiagramOnly,
	}
}

// Valid 检查分类是否属于封闭集合
func (c PanelCategory) Valid() bool {
	switch c {
	case CategoryNarratorSingle, CategoryTherapistSingle, CategoryClientSingle,
		CategoryDialogueTherapy, CategoryDialogueDomestic, CategoryMultiCharacter,
		CategoryConceptualDiagram, CategoryDiagramOnly:
		return true
	}
	return false
}

// ParsePanelCategory 解析分类字符串
func ParsePanelCategory(s string) (PanelCategory, error) {
	c := PanelCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown panel category %q", s)
	}
	return c, nil
}

// UnmarshalJSON 拒绝未知分类
func (c *PanelCategory) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, c, ParsePanelCategory)
}

// UnmarshalYAML 拒绝未知分类
func (c *PanelCategory) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshalYAMLEnum(unmarshal, c, ParsePanelCategory)
}

// EmotionBand 五档情绪带，从低到高有序
type EmotionBand string

const (
	EmotionDistressed EmotionBand = "distressed" // 高度焦虑、沮丧、绝望
	EmotionStruggling EmotionBand = "struggling" // 中度困难、怀疑
	EmotionNeutral    EmotionBand = "neutral"    // 平静、专注
	EmotionHopeful    EmotionBand = "hopeful"    // 投入、乐观
	EmotionPositive   EmotionBand = "positive"   // 释然、成功、愉快
)

// Rank 返回情绪在有序带中的位置，未知值返回 -1
func (e EmotionBand) Rank() int {
	switch e {
	case EmotionDistressed:
		return 0
	case EmotionStruggling:
		return 1
	case EmotionNeutral:
		return 2
	case EmotionHopeful:
		return 3
	case EmotionPositive:
		return 4
	}
	return -1
}

// Valid 检查情绪是否属于封闭集合
func (e EmotionBand) Valid() bool {
	return e.Rank() >= 0
}

// ParseEmotionBand 解析情绪字符串
func ParseEmotionBand(s string) (EmotionBand, error) {
	e := EmotionBand(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown emotion band %q", s)
	}
	return e, nil
}

func (e *EmotionBand) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, e, ParseEmotionBand)
}

func (e *EmotionBand) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshalYAMLEnum(unmarshal, e, ParseEmotionBand)
}

// CharacterRole 角色在治疗叙事中的身份
type CharacterRole string

const (
	RoleClient     CharacterRole = "client"     // 接受治疗的人
	RoleTherapist  CharacterRole = "therapist"  // 临床引导者
	RoleNarrator   CharacterRole = "narrator"   // 课程向导
	RolePartner    CharacterRole = "partner"    // 伴侣
	RoleSupporting CharacterRole = "supporting" // 其他角色
)

// Valid 检查角色是否属于封闭集合
func (r CharacterRole) Valid() bool {
	switch r {
	case RoleClient, RoleTherapist, RoleNarrator, RolePartner, RoleSupporting:
		return true
	}
	return false
}

// ParseCharacterRole 解析角色字符串
func ParseCharacterRole(s string) (CharacterRole, error) {
	r := CharacterRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown character role %q", s)
	}
	return r, nil
}

func (r *CharacterRole) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, r, ParseCharacterRole)
}

func (r *CharacterRole) UnmarshalYAML(unmarshal func(interface{}) error) error {
	return unmarshalYAMLEnum(unmarshal, r, ParseCharacterRole)
}

func unmarshalEnum[T ~string](data []byte, dst *T, parse func(string) (T, error)) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func unmarshalYAMLEnum[T ~string](unmarshal func(interface{}) error, dst *T, parse func(string) (T, error)) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
