// internal/api/response_helpers.go
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/thiswayup/reillustrate/internal/errors"
	"github.com/thiswayup/reillustrate/internal/models"
	"github.com/thiswayup/reillustrate/internal/utils"
)

// ErrorResponse 错误响应体。detail 字段与现有客户端兼容
type ErrorResponse struct {
	Detail        string   `json:"detail"`
	Code          string   `json:"code"`
	RequestID     string   `json:"request_id,omitempty"`
	ValidVariants []string `json:"valid_variants,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct {
	metrics *utils.APIMetrics
}

// NewResponseHelper 创建响应助手
func NewResponseHelper(metrics *utils.APIMetrics) *ResponseHelper {
	return &ResponseHelper{metrics: metrics}
}

// Success 成功响应，直接输出数据本身
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, detail string) {
	rh.write(c, statusCode, &ErrorResponse{Detail: detail, Code: errorCode})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, detail string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, detail)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, detail string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, detail)
}

// InternalError 500错误响应，内部细节只写日志
func (rh *ResponseHelper) InternalError(c *gin.Context, err error) {
	utils.GetLogger().Error("internal error", map[string]interface{}{
		"path":       c.FullPath(),
		"request_id": rh.getRequestID(c),
		"error":      err.Error(),
	})
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, "An internal error occurred")
}

// HandleError 按 AppError 类型映射状态码
func (rh *ResponseHelper) HandleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		rh.InternalError(c, err)
		return
	}

	switch {
	case apperrors.IsNotFoundError(err):
		code := appErr.Code
		if code == "" || code == "NOT_FOUND" {
			code = ErrorNotFound
		}
		rh.Error(c, http.StatusNotFound, code, appErr.Message)
	case apperrors.IsInvalidVariantError(err):
		rh.write(c, http.StatusBadRequest, &ErrorResponse{
			Detail:        appErr.Message,
			Code:          ErrorInvalidVariant,
			ValidVariants: models.ValidVariantIDs(),
		})
	case apperrors.IsValidationError(err):
		code := ErrorBadRequest
		if appErr.Code == ErrorPanelInvalid {
			code = ErrorPanelInvalid
		}
		rh.Error(c, http.StatusBadRequest, code, appErr.Error())
	case appErr.Code == ErrorTransformFailed:
		utils.GetLogger().Error("transform failed", map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": rh.getRequestID(c),
			"error":      err.Error(),
		})
		rh.Error(c, http.StatusInternalServerError, ErrorTransformFailed, appErr.Message)
	default:
		rh.InternalError(c, err)
	}
}

func (rh *ResponseHelper) write(c *gin.Context, statusCode int, body *ErrorResponse) {
	body.RequestID = rh.getRequestID(c)
	if rh.metrics != nil {
		rh.metrics.RecordError(body.Code, "api")
	}
	c.AbortWithStatusJSON(statusCode, body)
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
