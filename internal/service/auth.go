package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/logger"
)

// SignUp 注册并写入 profile。
// 注册成功后 profile 表可能暂时不接受该用户，写入按指数退避重试。
func (c *Coordinator) SignUp(ctx context.Context, email, password, username string) (*gateway.AuthResponse, error) {
	c.errs.Clear()
	done := c.begin()
	resp, err := c.gw.SignUp(ctx, email, password, username)
	done()
	if err != nil {
		return nil, c.fail(err)
	}
	if resp.User == nil || resp.AccessToken == "" {
		// 需要邮箱确认，没有会话就写不了 profile
		logger.Info("signup pending confirmation", zap.String("email", email))
		return resp, nil
	}

	profile := model.Profile{ID: resp.User.ID, Username: username, Email: email}
	if err := c.createProfile(ctx, profile); err != nil {
		return resp, c.fail(err)
	}
	return resp, c.Reload(ctx)
}

func (c *Coordinator) createProfile(ctx context.Context, p model.Profile) error {
	defer c.begin()()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = 16 * c.retryInitial

	attempt := 0
	_, err := backoff.Retry(ctx, func() (*model.Profile, error) {
		attempt++
		created, err := c.profiles.Create(ctx, p)
		if err != nil && !retryableProfileError(err) {
			return nil, backoff.Permanent(err)
		}
		return created, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.retryMax),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("profile insert retry",
				zap.String("user", p.ID.String()),
				zap.Int("attempt", attempt),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	return err
}

// retryableProfileError 只有 auth 用户尚未同步（外键 / 权限类错误）、限流和 5xx 值得重试；
// 重复 profile、请求体错误等 4xx 直接失败
func retryableProfileError(err error) bool {
	var reqErr *gateway.RequestError
	if !errors.As(err, &reqErr) {
		// 网络错误
		return true
	}
	switch {
	case reqErr.Status >= 500:
		return true
	case reqErr.Status == http.StatusConflict:
		return reqErr.Code == "23503" || strings.Contains(reqErr.Message, "foreign key")
	case reqErr.Status == http.StatusUnauthorized,
		reqErr.Status == http.StatusForbidden,
		reqErr.Status == http.StatusNotFound,
		reqErr.Status == http.StatusTooManyRequests:
		return true
	}
	return false
}

// SignIn 登录后全量加载
func (c *Coordinator) SignIn(ctx context.Context, email, password string) (*gateway.AuthResponse, error) {
	c.errs.Clear()
	done := c.begin()
	resp, err := c.gw.SignIn(ctx, email, password)
	done()
	if err != nil {
		return nil, c.fail(err)
	}
	return resp, c.Reload(ctx)
}

// SignOut 清除会话和本地状态
func (c *Coordinator) SignOut(ctx context.Context) error {
	if err := c.gw.SignOut(ctx); err != nil {
		return c.fail(err)
	}
	c.reset()
	c.errs.Clear()
	return nil
}

// Me 当前会话，未登录返回 ErrNotAuthenticated
func (c *Coordinator) Me(ctx context.Context) (*model.Session, error) {
	return c.viewer(ctx)
}
