package service

import (
	"strings"
	"sync"
	"time"

	"github.com/cakery-next/internal/config"

	"github.com/mojocn/base64Captcha"
)

const captchaStoreMax = 10240

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 登录验证码服务
type CaptchaService struct {
	cfg config.CaptchaConfig

	mu    sync.Mutex
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{cfg: cfg}
}

// RequiredForLogin 登录场景是否要求验证码
func (s *CaptchaService) RequiredForLogin() bool {
	return s != nil && s.cfg.EnabledOnLogin
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	driver := base64Captcha.NewDriverString(
		normalizeCaptchaInt(s.cfg.Height, 80),
		normalizeCaptchaInt(s.cfg.Width, 240),
		0,
		base64Captcha.OptionShowHollowLine,
		normalizeCaptchaInt(s.cfg.Length, 5),
		"0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ",
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	captcha := base64Captcha.NewCaptcha(driver, s.ensureStore())
	id, b64s, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// VerifyLogin 校验登录场景验证码，未启用时直接放行
func (s *CaptchaService) VerifyLogin(payload CaptchaVerifyPayload) error {
	if !s.RequiredForLogin() {
		return nil
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.ensureStore().Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) ensureStore() base64Captcha.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		expire := time.Duration(normalizeCaptchaInt(s.cfg.ExpireSeconds, 300)) * time.Second
		s.store = base64Captcha.NewMemoryStore(captchaStoreMax, expire)
	}
	return s.store
}

func normalizeCaptchaInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
