package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// UpstreamError 外部模型 API 返回的错误
type UpstreamError struct {
	StatusCode int
	Status     string
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return "upstream: " + e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Classify 将任意外部调用错误归类为 AppError。
// 顺序：已归类错误 -> context 错误 -> 配额 -> 凭证 -> 通用上游错误。
// fallback 在错误没有可读信息时作为对外消息。
func Classify(err error, fallback string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.WithError(err)
	case stderrors.Is(err, context.Canceled):
		return ErrCanceled.WithError(err)
	}

	if IsQuotaSignal(err) {
		return ErrQuotaExceeded.WithError(err)
	}
	if IsCredentialSignal(err) {
		return ErrInvalidCredential.WithError(err)
	}

	message := strings.TrimSpace(err.Error())
	var upstream *UpstreamError
	if stderrors.As(err, &upstream) && strings.TrimSpace(upstream.Message) != "" {
		message = strings.TrimSpace(upstream.Message)
	}
	if message == "" {
		message = fallback
	}
	return Wrap(err, CodeUpstreamFailure, message)
}

// IsQuotaSignal 判断是否为限流/配额错误（429 状态码或消息包含 quota）
func IsQuotaSignal(err error) bool {
	if err == nil {
		return false
	}
	var upstream *UpstreamError
	if stderrors.As(err, &upstream) {
		if upstream.StatusCode == http.StatusTooManyRequests || upstream.Status == "RESOURCE_EXHAUSTED" {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}

// IsCredentialSignal 判断是否为 API Key 错误
func IsCredentialSignal(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") || strings.Contains(msg, "api_key_invalid")
}
