package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPanelNotFoundError(t *testing.T) {
	err := NewPanelNotFoundError("nonexistent")
	if err.Error() != "Panel nonexistent not found" {
		t.Errorf("消息不匹配: %s", err.Error())
	}
	if err.Code != "PANEL_NOT_FOUND" {
		t.Errorf("错误代码应为 PANEL_NOT_FOUND，实际 %s", err.Code)
	}
	if !IsNotFoundError(err) || IsValidationError(err) {
		t.Error("类型判断错误")
	}
}

func TestInvalidVariantError(t *testing.T) {
	err := NewInvalidVariantError("sepia", []string{"age_older", "age_younger"})
	if err.Message != "Invalid variant_type. Must be one of: [age_older age_younger]" {
		t.Errorf("消息不匹配: %s", err.Message)
	}
	if !IsInvalidVariantError(err) {
		t.Error("应为非法变体错误")
	}
	if err.Code != "INVALID_VARIANT" {
		t.Errorf("错误代码不匹配: %s", err.Code)
	}
}

func TestWrapErrorKeepsType(t *testing.T) {
	base := NewPanelNotFoundError("p1")
	wrapped := WrapError(base, "demo failed", ErrorTypeError)

	if !IsNotFoundError(wrapped) {
		t.Error("包装后应保留 NotFound 类型")
	}
	var appErr *AppError
	if !errors.As(wrapped, &appErr) || appErr.Code != "PANEL_NOT_FOUND" {
		t.Error("包装后应保留错误代码")
	}
	if !errors.Is(wrapped, base) {
		t.Error("应能通过 errors.Is 找到原始错误")
	}

	plain := fmt.Errorf("disk full")
	wrapped = WrapError(plain, "seed failed", ErrorTypeError)
	if !errors.Is(wrapped, plain) {
		t.Error("应保留原始错误链")
	}
	if IsValidationError(wrapped) {
		t.Error("不应为验证错误")
	}

	if WrapError(nil, "noop", ErrorTypeError) != nil {
		t.Error("nil 错误应返回 nil")
	}
}

func TestPredicatesOnForeignErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewValidationError("bad panel", nil))
	if !IsValidationError(err) {
		t.Error("应能穿透 fmt.Errorf 包装")
	}
	if IsNotFoundError(errors.New("plain")) {
		t.Error("普通错误不应被识别为 NotFound")
	}
}

func TestCodedConstructors(t *testing.T) {
	invalid := NewPanelInvalidError("bad panel", errors.New("names not unique"))
	if !IsValidationError(invalid) || invalid.Code != "PANEL_INVALID" {
		t.Errorf("面板非法错误类型或代码不匹配: %s %s", invalid.Type, invalid.Code)
	}

	failed := NewTransformFailedError("template broke", errors.New("exec"))
	if failed.Type != ErrorTypeError || failed.Code != "TRANSFORM_FAILED" {
		t.Errorf("变换失败错误类型或代码不匹配: %s %s", failed.Type, failed.Code)
	}
	if IsValidationError(failed) {
		t.Error("变换失败不应为验证错误")
	}
}
