package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/session"
)

// AuthUser auth 接口返回的用户
type AuthUser struct {
	ID           model.ID       `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// AuthResponse signup / token 接口响应
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *AuthUser `json:"user"`
}

type signUpBody struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data"`
}

type signInBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp 注册；返回 access_token 时同时保存会话
func (c *Client) SignUp(ctx context.Context, email, password, username string) (*AuthResponse, error) {
	body, err := jsonBody(signUpBody{Email: email, Password: password, Data: map[string]any{"username": username}})
	if err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/auth/v1/signup", body)
}

// SignIn 邮箱密码登录并保存会话
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	body, err := jsonBody(signInBody{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return c.authenticate(ctx, "/auth/v1/token?grant_type=password", body)
}

// SignOut 只清本地会话
func (c *Client) SignOut(ctx context.Context) error {
	return c.store.Clear(ctx)
}

func (c *Client) authenticate(ctx context.Context, endpoint string, body io.Reader) (*AuthResponse, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		kind:        kindAuth,
		method:      http.MethodPost,
		endpoint:    endpoint,
		body:        body,
		contentType: "application/json",
	}, &raw)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		// 需要邮箱确认时 signup 直接返回用户对象，没有 token
		if out.User == nil {
			var u AuthUser
			if json.Unmarshal(raw, &u) == nil && u.ID != "" {
				out.User = &u
			}
		}
	}

	if out.AccessToken != "" {
		var id model.ID
		var email string
		if out.User != nil {
			id, email = out.User.ID, out.User.Email
		}
		if err := c.store.Save(ctx, session.FromToken(out.AccessToken, id, email)); err != nil {
			return nil, err
		}
	}
	return &out, nil
}
