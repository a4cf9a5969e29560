package models

import "time"

// VisitorState 访客会话持久状态
// 原浏览器本地存储（登录用户记录、令牌、游客标识）的服务端化
type VisitorState struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	SessionID string `gorm:"uniqueIndex;size:64;not null" json:"session_id"` // 访客会话标识

	UserID    uint   `gorm:"index" json:"user_id"` // 0 表示未登录
	UserEmail string `gorm:"size:255" json:"user_email"`
	UserName  string `gorm:"size:255" json:"user_name"`
	UserRole  string `gorm:"size:32" json:"user_role"`
	Token     string `gorm:"size:2048" json:"-"` // 后端签发的 Bearer Token

	GuestID string `gorm:"size:64;index" json:"guest_id"` // 后端签发的游客标识

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (VisitorState) TableName() string {
	return "visitor_states"
}

// HasValidUser 判断是否存在结构完整的登录用户记录
func (v *VisitorState) HasValidUser() bool {
	return v != nil && v.UserID != 0 && v.UserEmail != "" && v.UserName != ""
}

// HasGuest 判断是否存在游客标识
func (v *VisitorState) HasGuest() bool {
	return v != nil && v.GuestID != ""
}
