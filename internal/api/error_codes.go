// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest        = "BAD_REQUEST"
	ErrorNotFound          = "NOT_FOUND"
	ErrorInternalError     = "INTERNAL_ERROR"
	ErrorRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// 面板相关错误
	ErrorPanelNotFound = "PANEL_NOT_FOUND"
	ErrorPanelInvalid  = "PANEL_INVALID"

	// 变换相关错误
	ErrorInvalidVariant  = "INVALID_VARIANT"
	ErrorTransformFailed = "TRANSFORM_FAILED"

	// 分析相关错误
	ErrorAnalysisFormatInvalid = "ANALYSIS_FORMAT_INVALID"
)
