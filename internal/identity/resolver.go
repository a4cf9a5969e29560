package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/constants"
	"github.com/cakery-next/internal/logger"
	"github.com/cakery-next/internal/models"
	"github.com/cakery-next/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIdentity 无可用身份（游客会话申请失败后的降级态）
var ErrNoIdentity = errors.New("no active identity")

// AuthAPI 后端身份接口
type AuthAPI interface {
	GuestSession(ctx context.Context) (string, error)
	Login(ctx context.Context, email, password string) (*backend.AuthResult, error)
	Register(ctx context.Context, email, password, name string) (*backend.AuthResult, error)
}

// CartMerger 登录后的游客购物车合并入口（由购物车同步器实现）
type CartMerger interface {
	MergeGuestCart(ctx context.Context, sessionID string, userID uint, guestID string) error
}

// Resolver 身份解析器
// 保证任何购物车操作执行前恰有一个身份（游客或用户）可用
type Resolver struct {
	api    AuthAPI
	store  *store.Store
	merger CartMerger
	now    func() time.Time
}

// NewResolver 创建身份解析器
func NewResolver(api AuthAPI, st *store.Store) *Resolver {
	return &Resolver{
		api:   api,
		store: st,
		now:   time.Now,
	}
}

// SetMerger 注入购物车合并器（避免 identity 与 cart 的构造环）
func (r *Resolver) SetMerger(m CartMerger) {
	r.merger = m
}

// StateOf 从持久记录推导身份状态
func StateOf(state *models.VisitorState) State {
	if state == nil {
		return None()
	}
	if state.HasValidUser() {
		return User(state.UserID)
	}
	if state.HasGuest() {
		return Guest(state.GuestID)
	}
	return None()
}

// Resolve 解析当前会话的生效身份
// 已登录记录优先；否则复用已缓存的游客标识；都没有则向后端申请新游客会话。
// 游客会话申请失败时停留在无身份态，购物车操作降级为空购物车直到重试成功。
func (r *Resolver) Resolve(ctx context.Context, sessionID string) (State, error) {
	visitor, err := r.store.LoadVisitor(sessionID)
	if err != nil {
		return None(), err
	}

	if visitor.HasValidUser() {
		if r.tokenExpired(visitor.Token) {
			logger.Warnw("identity_token_expired", "session_id", sessionID, "user_id", visitor.UserID)
			if err := r.Logout(ctx, sessionID); err != nil {
				return None(), err
			}
			return r.issueGuest(ctx, &models.VisitorState{SessionID: sessionID})
		}
		return User(visitor.UserID), nil
	}

	if visitor.HasGuest() {
		return Guest(visitor.GuestID), nil
	}

	return r.issueGuest(ctx, visitor)
}

func (r *Resolver) issueGuest(ctx context.Context, visitor *models.VisitorState) (State, error) {
	guestID, err := r.api.GuestSession(ctx)
	if err != nil {
		logger.Warnw("guest_session_issue_failed", "session_id", visitor.SessionID, "error", err)
		return None(), ErrNoIdentity
	}
	visitor.GuestID = guestID
	if err := r.store.SaveVisitor(visitor); err != nil {
		return None(), err
	}
	r.logTransition(visitor.SessionID, None(), Guest(guestID))
	return Guest(guestID), nil
}

// Login 登录并在存在游客购物车时触发恰好一次合并
func (r *Resolver) Login(ctx context.Context, sessionID, email, password string) (State, error) {
	result, err := r.api.Login(ctx, email, password)
	if err != nil {
		return None(), err
	}
	return r.adoptUser(ctx, sessionID, result)
}

// Register 注册并登录
func (r *Resolver) Register(ctx context.Context, sessionID, email, password, name string) (State, error) {
	result, err := r.api.Register(ctx, email, password, name)
	if err != nil {
		return None(), err
	}
	return r.adoptUser(ctx, sessionID, result)
}

func (r *Resolver) adoptUser(ctx context.Context, sessionID string, result *backend.AuthResult) (State, error) {
	visitor, err := r.store.LoadVisitor(sessionID)
	if err != nil {
		return None(), err
	}
	from := StateOf(visitor)
	guestID := visitor.GuestID

	visitor.UserID = result.User.ID
	visitor.UserEmail = result.User.Email
	visitor.UserName = result.User.Name
	visitor.UserRole = normalizeRole(result.User.Role)
	visitor.Token = result.Token
	if err := r.store.SaveVisitor(visitor); err != nil {
		return None(), err
	}

	if guestID == "" {
		state := r.transition(sessionID, from, User(result.User.ID))
		return state, nil
	}

	// 登录前存在游客标识：进入待合并态，请求一次服务端合并
	pending := r.transition(sessionID, from, MergePending(result.User.ID, guestID))
	if r.merger == nil {
		logger.Errorw("cart_merger_missing", "session_id", sessionID)
		return pending, nil
	}
	if err := r.merger.MergeGuestCart(ctx, sessionID, result.User.ID, guestID); err != nil {
		// 合并失败保留游客标识，待下次登录重试；用户身份本身已生效
		logger.Warnw("guest_cart_merge_failed",
			"session_id", sessionID,
			"user_id", result.User.ID,
			"error", err,
		)
		return r.transition(sessionID, pending, User(result.User.ID)), nil
	}

	visitor.GuestID = ""
	if err := r.store.SaveVisitor(visitor); err != nil {
		return pending, err
	}
	return r.transition(sessionID, pending, User(result.User.ID)), nil
}

// Logout 登出：清空身份与购物车缓存并广播重置信号
// 下一次购物车访问会触发新游客会话的签发
func (r *Resolver) Logout(ctx context.Context, sessionID string) error {
	visitor, err := r.store.LoadVisitor(sessionID)
	if err != nil {
		return err
	}
	from := StateOf(visitor)
	if err := r.store.ClearVisitor(ctx, sessionID); err != nil {
		return err
	}
	r.transition(sessionID, from, None())
	return nil
}

// transition 状态迁移统一入口：拒绝非法迁移并记录日志
func (r *Resolver) transition(sessionID string, from, to State) State {
	if !TransitionAllowed(from.Kind, to.Kind) {
		logger.Warnw("identity_transition_rejected",
			"session_id", sessionID,
			"from", from.Kind,
			"to", to.Kind,
		)
		return from
	}
	r.logTransition(sessionID, from, to)
	return to
}

func (r *Resolver) logTransition(sessionID string, from, to State) {
	if from.Kind == to.Kind {
		return
	}
	logger.Infow("identity_transition",
		"session_id", sessionID,
		"from", from.Kind,
		"to", to.Kind,
	)
}

// tokenExpired 本地检查后端令牌是否过期（只读 exp 声明，不校验签名）
func (r *Resolver) tokenExpired(token string) bool {
	if strings.TrimSpace(token) == "" {
		return true
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// 非 JWT 格式的不透明令牌交由后端判定
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(r.now())
}

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.RoleAdmin:
		return constants.RoleAdmin
	default:
		return constants.RoleCustomer
	}
}
