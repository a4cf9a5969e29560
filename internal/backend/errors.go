package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable 网络/传输失败（允许回退到本地缓存）
	ErrUnavailable = errors.New("backend unavailable")
	// ErrUnauthorized 后端判定令牌无效或过期（触发强制登出）
	ErrUnauthorized = errors.New("backend unauthorized")
	// ErrResponseInvalid 响应无法解析
	ErrResponseInvalid = errors.New("backend response invalid")
)

// APIError 后端业务校验失败（如库存不足），携带原始提示消息
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request rejected (status %d)", e.StatusCode)
	}
	return e.Message
}

// AsAPIError 提取业务校验错误
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTransient 判断是否为可回退缓存的传输类失败
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
