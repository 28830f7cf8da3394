package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

var (
	// ErrUnauthorized 缺少或无效的凭据（会话 token 或模型 key）
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput 请求结构或上游数据结构不合法
	ErrInvalidInput = errors.New("invalid input")
)

// ClassifyError maps an error onto the HTTP status surfaced to the browser and
// a short error type used as a log field.
func ClassifyError(err error) (int, string) {
	if err == nil {
		return http.StatusOK, ""
	}

	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized, "unauthorized"
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest, "invalid_input"
	}

	// JSON decode errors - 请求格式错误
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return http.StatusBadRequest, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return http.StatusBadRequest, "json_decode_error"
	}

	// 邮件提供方返回的错误
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if IsProviderAuthError(gErr) {
			return http.StatusUnauthorized, "provider_unauthorized"
		}
		return http.StatusInternalServerError, "provider_error"
	}

	// 模型服务返回的错误
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return http.StatusUnauthorized, "model_unauthorized"
		}
		return http.StatusInternalServerError, "model_error"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized {
			return http.StatusUnauthorized, "model_unauthorized"
		}
		return http.StatusInternalServerError, "model_error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusInternalServerError, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusInternalServerError, "context_canceled"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return http.StatusInternalServerError, "network_timeout"
		}
		return http.StatusInternalServerError, "network_error"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return http.StatusInternalServerError, "network_timeout"
		}
		return http.StatusInternalServerError, "network_error"
	}

	return http.StatusInternalServerError, "unknown_error"
}

// ErrorMessage returns the text placed in the {"error": ...} body: the
// underlying message when there is one, the fallback otherwise.
func ErrorMessage(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}

// IsProviderAuthError 只有 401 和权限不足的 403 算凭据问题；
// 限流、API 未启用等其它 403 不是
func IsProviderAuthError(gErr *googleapi.Error) bool {
	switch gErr.Code {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		for _, item := range gErr.Errors {
			if item.Reason == "insufficientPermissions" {
				return true
			}
		}
	}
	return false
}
