// internal/models/validation.go
package models

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterValidation("panel_category", func(fl validator.FieldLevel) bool {
			return PanelCategory(fl.Field().String()).Valid()
		})
		validate.RegisterValidation("emotion_band", func(fl validator.FieldLevel) bool {
			return EmotionBand(fl.Field().String()).Valid()
		})
		validate.RegisterValidation("character_role", func(fl validator.FieldLevel) bool {
			return CharacterRole(fl.Field().String()).Valid()
		})
	})
	return validate
}

// Validate 检查面板结构及其不变量：
// 枚举字段合法（结构标签）、角色名唯一、locked 与 adaptable 不相交
func (p *Panel) Validate() error {
	if err := structValidator().Struct(p); err != nil {
		return formatValidationErrors(err)
	}

	var problems []string
	seen := make(map[string]struct{}, len(p.Characters))
	for _, c := range p.Characters {
		if _, dup := seen[c.Name]; dup {
			problems = append(problems, fmt.Sprintf("character name %q is not unique", c.Name))
		}
		seen[c.Name] = struct{}{}
	}

	locked := make(map[string]struct{}, len(p.LockedElements))
	for _, e := range p.LockedElements {
		locked[e] = struct{}{}
	}
	for _, e := range p.AdaptableElements {
		if _, ok := locked[e]; ok {
			problems = append(problems, fmt.Sprintf("element %q is both locked and adaptable", e))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid panel %s: %s", p.PanelID, strings.Join(problems, "; "))
	}
	return nil
}

func formatValidationErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid panel: %s", strings.Join(msgs, "; "))
}
