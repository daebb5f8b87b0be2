// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeInvalidVariant ErrorType = "invalid_variant"
	ErrorTypeError          ErrorType = "processing_error"
)

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string // 对外的错误代码
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewPanelNotFoundError 面板不存在，消息格式与现有客户端兼容
func NewPanelNotFoundError(panelID string) *AppError {
	err := NewNotFoundError(fmt.Sprintf("Panel %s not found", panelID), nil)
	err.Code = "PANEL_NOT_FOUND"
	return err
}

// NewInvalidVariantError 变体不在封闭目录中，在任何规格计算之前拒绝
func NewInvalidVariantError(variantType string, valid []string) *AppError {
	return NewAppError(ErrorTypeInvalidVariant,
		fmt.Sprintf("Invalid variant_type. Must be one of: %v", valid),
		fmt.Errorf("unknown variant %q", variantType))
}

// NewPanelInvalidError 面板数据可以解码但不符合面板约束
func NewPanelInvalidError(message string, originalError error) *AppError {
	err := NewValidationError(message, originalError)
	err.Code = "PANEL_INVALID"
	return err
}

// NewTransformFailedError 规格已生成但后续产物（提示词、审核模板）构建失败
func NewTransformFailedError(message string, originalError error) *AppError {
	err := NewProcessingError(message, originalError)
	err.Code = "TRANSFORM_FAILED"
	return err
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsInvalidVariantError 检查是否为非法变体错误
func IsInvalidVariantError(err error) bool {
	return hasType(err, ErrorTypeInvalidVariant)
}

func hasType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeInvalidVariant:
		return "INVALID_VARIANT"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 已经是 AppError，保留类型和代码，只追加上下文
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
		}
	}

	return NewAppError(errType, message, err)
}
