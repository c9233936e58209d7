package gateway

import (
	"encoding/json"
	"strings"
)

const genericFailure = "request failed"

// AuthError 登录 / 注册失败（凭据错误、邮箱已注册等）
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// RequestError 任意非 2xx 的 REST 响应，Message 取自响应体
type RequestError struct {
	Status  int
	Message string
	// Code 后端返回的 SQLSTATE（如 23503 外键、23505 唯一键），没有时为空
	Code string
}

func (e *RequestError) Error() string { return e.Message }

// UploadError storage 上传失败
type UploadError struct {
	Status  int
	Message string
}

func (e *UploadError) Error() string { return "upload failed: " + e.Message }

type errorKind int

const (
	kindRequest errorKind = iota
	kindAuth
	kindUpload
)

func newStatusError(kind errorKind, status int, body []byte) error {
	switch kind {
	case kindAuth:
		return &AuthError{Status: status, Message: backendMessage(body)}
	case kindUpload:
		msg := backendMessage(body)
		if msg == genericFailure {
			if raw := strings.TrimSpace(string(body)); raw != "" {
				msg = raw
			}
		}
		return &UploadError{Status: status, Message: msg}
	default:
		return &RequestError{Status: status, Message: backendMessage(body), Code: backendCode(body)}
	}
}

func backendCode(body []byte) string {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Code
}

// backendMessage 依次尝试 message / msg / error_description / error，都没有则给通用提示
func backendMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return genericFailure
	}
	for _, k := range []string{"message", "msg", "error_description", "error"} {
		if s, ok := payload[k].(string); ok && s != "" {
			return s
		}
	}
	return genericFailure
}
