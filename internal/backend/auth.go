package backend

import (
	"context"
	"net/http"
)

// AuthUser 后端返回的用户信息
type AuthUser struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthResult 登录/注册结果
type AuthResult struct {
	User  AuthUser `json:"user"`
	Token string   `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Login 用户登录
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Password: password}, "", &result); err != nil {
		return nil, err
	}
	if result.User.ID == 0 || result.Token == "" {
		return nil, ErrResponseInvalid
	}
	return &result, nil
}

// Register 用户注册
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, registerRequest{Email: email, Password: password, Name: name}, "", &result); err != nil {
		return nil, err
	}
	if result.User.ID == 0 || result.Token == "" {
		return nil, ErrResponseInvalid
	}
	return &result, nil
}

// Me 校验令牌并获取当前用户
func (c *Client) Me(ctx context.Context, token string) (*AuthUser, error) {
	var user AuthUser
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
