package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cakery-next/internal/config"
)

const defaultTimeout = 10 * time.Second

// Client 商城后端 API 客户端
// 后端是业务事实的唯一来源，这里只做带统一超时的透传调用
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// New 创建后端客户端
func New(cfg config.BackendConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		serviceToken: strings.TrimSpace(cfg.ServiceToken),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// ServiceToken 返回后台轮询使用的服务账号令牌
func (c *Client) ServiceToken() string {
	return c.serviceToken
}

// mutationResponse 后端变更接口的统一响应
type mutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	p := strings.TrimSpace(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	full := c.baseURL + p
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return full
}

// do 执行一次后端请求并解析 JSON 响应
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, token string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request body: %v", ErrResponseInvalid, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failure mutationResponse
		_ = json.Unmarshal(data, &failure)
		return &APIError{StatusCode: resp.StatusCode, Message: failure.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}

// doMutation 执行变更请求并按 {success, message} 约定判定结果
func (c *Client) doMutation(ctx context.Context, method, path string, query url.Values, body interface{}, token string) error {
	var result mutationResponse
	if err := c.do(ctx, method, path, query, body, token, &result); err != nil {
		return err
	}
	if !result.Success {
		return &APIError{StatusCode: http.StatusOK, Message: result.Message}
	}
	return nil
}

// doRaw 执行查询请求并原样返回 JSON（薄透传接口用）
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body interface{}, token string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, method, path, query, body, token, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
