// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "thumbnail-ai-api/pkg/errors"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Success 返回成功响应，数据直接作为响应体
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, data)
}

// NoContent 返回无内容响应 (204)
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, code apperrors.ErrorCode, message string) {
	c.JSON(httpCode, ErrorResponse{
		Error:   message,
		Code:    string(code),
		TraceID: c.GetString("trace_id"),
	})
}

// AppError 按 AppError 的状态码与错误码输出，非 AppError 视为内部错误
func AppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternalError.WithError(err)
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorResponse{
		Error:   appErr.Message,
		Code:    string(appErr.Code),
		Detail:  appErr.Detail,
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, apperrors.CodeInvalidParam, message)
}

// RequestTooLarge 返回 413 错误
func RequestTooLarge(c *gin.Context) {
	Error(c, http.StatusRequestEntityTooLarge, apperrors.CodeInvalidParam, "request body too large")
}
