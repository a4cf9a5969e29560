package service

import "errors"

var (
	// ErrCaptchaRequired 需要验证码
	ErrCaptchaRequired = errors.New("captcha required")
	// ErrCaptchaInvalid 验证码错误
	ErrCaptchaInvalid = errors.New("captcha invalid")
	// ErrOrderInvalid 下单载荷不合法
	ErrOrderInvalid = errors.New("order payload invalid")
	// ErrLoginRequired 操作要求已登录用户
	ErrLoginRequired = errors.New("login required")
)
