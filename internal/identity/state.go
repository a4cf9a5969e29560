package identity

import (
	"github.com/cakery-next/internal/backend"
	"github.com/cakery-next/internal/constants"
)

// State 身份状态标签联合
// 任一时刻恰有一个身份生效：用户或游客；merge_pending 是登录瞬间的过渡态
type State struct {
	Kind    string `json:"kind"`
	UserID  uint   `json:"user_id,omitempty"`
	GuestID string `json:"guest_id,omitempty"`
}

// None 无身份状态
func None() State {
	return State{Kind: constants.IdentityNone}
}

// Guest 游客身份状态
func Guest(guestID string) State {
	return State{Kind: constants.IdentityGuestActive, GuestID: guestID}
}

// User 用户身份状态
func User(userID uint) State {
	return State{Kind: constants.IdentityUserActive, UserID: userID}
}

// MergePending 待合并状态（登录成功且此前存在游客购物车）
func MergePending(userID uint, guestID string) State {
	return State{Kind: constants.IdentityMergePending, UserID: userID, GuestID: guestID}
}

// Active 判断是否存在可用身份
func (s State) Active() bool {
	return s.Kind == constants.IdentityGuestActive ||
		s.Kind == constants.IdentityMergePending ||
		s.Kind == constants.IdentityUserActive
}

// CartIdentity 转换为购物车归属身份
// merge_pending 期间以用户身份访问购物车（合并由后端完成）
func (s State) CartIdentity() backend.CartIdentity {
	switch s.Kind {
	case constants.IdentityUserActive, constants.IdentityMergePending:
		return backend.CartIdentity{UserID: s.UserID}
	case constants.IdentityGuestActive:
		return backend.CartIdentity{GuestID: s.GuestID}
	default:
		return backend.CartIdentity{}
	}
}

// allowedTransitions 状态机合法迁移表
var allowedTransitions = map[string][]string{
	constants.IdentityNone: {
		constants.IdentityGuestActive,
		constants.IdentityUserActive,
	},
	constants.IdentityGuestActive: {
		constants.IdentityUserActive,
		constants.IdentityMergePending,
		constants.IdentityNone,
	},
	constants.IdentityMergePending: {
		constants.IdentityUserActive,
		constants.IdentityNone,
	},
	constants.IdentityUserActive: {
		constants.IdentityNone,
	},
}

// TransitionAllowed 判断状态迁移是否合法（原地保持恒为合法）
func TransitionAllowed(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
