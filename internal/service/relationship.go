package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/logger"
)

// IsFollowing 按本地 following 列表判断
func (c *Coordinator) IsFollowing(userID model.ID) bool {
	_, ok := c.followRow(userID)
	return ok
}

func (c *Coordinator) followRow(userID model.ID) (model.Follow, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, f := range c.state.Following {
		if f.FollowingID == userID {
			return f, true
		}
	}
	return model.Follow{}, false
}

// ToggleFollow 已关注则取关，否则关注；随后全量重载。返回操作后的关注状态。
func (c *Coordinator) ToggleFollow(ctx context.Context, userID model.ID) (bool, error) {
	return c.setFollow(ctx, userID, nil)
}

// Follow 幂等关注
func (c *Coordinator) Follow(ctx context.Context, userID model.ID) error {
	want := true
	_, err := c.setFollow(ctx, userID, &want)
	return err
}

// Unfollow 幂等取关
func (c *Coordinator) Unfollow(ctx context.Context, userID model.ID) error {
	want := false
	_, err := c.setFollow(ctx, userID, &want)
	return err
}

// setFollow want 为 nil 时翻转，否则把关注状态设为 *want，已经一致则什么都不发。
// 同一目标的写操作串行执行，状态在拿到锁之后重新判断。
func (c *Coordinator) setFollow(ctx context.Context, userID model.ID, want *bool) (bool, error) {
	sess, err := c.viewer(ctx)
	if err != nil {
		return false, c.fail(err)
	}
	if userID == sess.UserID {
		return false, c.fail(ErrFollowSelf)
	}

	key := "follow:" + userID.String()
	switch {
	case want == nil:
		key += ":toggle"
	case *want:
		key += ":on"
	default:
		key += ":off"
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		c.followMu.Lock()
		defer c.followMu.Unlock()

		row, following := c.followRow(userID)
		if want != nil && *want == following {
			return following, nil
		}
		defer c.begin()()

		if following {
			if err := c.follows.Delete(ctx, row.ID); err != nil {
				return true, err
			}
			logger.Info("unfollowed", zap.String("user", sess.UserID.String()), zap.String("target", userID.String()))
		} else {
			if _, err := c.follows.Create(ctx, sess.UserID, userID); err != nil {
				return false, err
			}
			logger.Info("followed", zap.String("user", sess.UserID.String()), zap.String("target", userID.String()))
		}
		return !following, c.Reload(ctx)
	})
	if err != nil {
		return false, c.fail(err)
	}
	return v.(bool), nil
}
