package session

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/moments/internal/model"
)

// accessClaims 后端签发的 access token 中我们关心的字段
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// FromToken 由 access token 与 auth 接口返回的用户信息构造会话。
// token 的签名无法在客户端校验，只读取 claims；读取失败时完全依赖 userID / email。
func FromToken(token string, userID model.ID, email string) *model.Session {
	s := &model.Session{Token: token, UserID: userID, Email: email}

	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return s
	}
	if s.UserID == "" && claims.Subject != "" {
		s.UserID = model.ID(claims.Subject)
	}
	if s.Email == "" {
		s.Email = claims.Email
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}
