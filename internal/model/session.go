package model

import "time"

// Session 当前登录身份与 bearer token
type Session struct {
	Token  string `json:"token"`
	UserID ID     `json:"user_id"`
	Email  string `json:"email"`
	// ExpiresAt 取自 token 的 exp，未知时为零值
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired 零值 ExpiresAt 视为不过期
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
