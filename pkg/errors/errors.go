// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeInvalidParam    ErrorCode = "INVALID_PARAM"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeCanceled        ErrorCode = "CANCELED"

	// 上游模型错误
	CodeQuotaExceeded     ErrorCode = "QUOTA_EXCEEDED"
	CodeInvalidCredential ErrorCode = "INVALID_CREDENTIAL"
	CodeUpstreamFailure   ErrorCode = "UPSTREAM_FAILURE"

	// 业务错误
	CodeEmptyGeneration   ErrorCode = "EMPTY_GENERATION"
	CodeMalformedAnalysis ErrorCode = "MALFORMED_ANALYSIS"
	CodeInvalidMode       ErrorCode = "INVALID_MODE"

	// 存储错误
	CodeStorageError ErrorCode = "STORAGE_ERROR"
)

// StatusClientClosedRequest 客户端主动断开（nginx 约定）
const StatusClientClosedRequest = 499

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, ErrQuotaExceeded)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 添加详细信息（返回副本，不修改预定义错误）
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 添加底层错误（返回副本）
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidParam, CodeInvalidMode:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTooManyRequests, CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeUpstreamFailure, CodeEmptyGeneration, CodeMalformedAnalysis:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam    = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound        = New(CodeNotFound, "resource not found")
	ErrTooManyRequests = New(CodeTooManyRequests, "too many requests")
	ErrInternalError   = New(CodeInternalError, "internal server error")

	ErrQuotaExceeded     = New(CodeQuotaExceeded, "API quota exceeded. Wait a few seconds and try again, or reduce the number of thumbnails.")
	ErrInvalidCredential = New(CodeInvalidCredential, "Invalid API key. Check the configured Gemini credential.")
	ErrEmptyGeneration   = New(CodeEmptyGeneration, "no image produced")
	ErrMalformedAnalysis = New(CodeMalformedAnalysis, "Analysis failed")
	ErrInvalidMode       = New(CodeInvalidMode, "Invalid mode")
	ErrTimeout           = New(CodeTimeout, "request timed out")
	ErrCanceled          = New(CodeCanceled, "request canceled")
)

// IsAppError 检查错误链中是否包含 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
