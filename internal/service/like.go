package service

import (
	"context"

	"github.com/d60-Lab/moments/internal/feed"
	"github.com/d60-Lab/moments/internal/model"
)

// ToggleLike 点赞 / 取消点赞。
// 不重载，直接修补本地 likes：删除后过滤掉该行，插入后追加返回的行。
func (c *Coordinator) ToggleLike(ctx context.Context, momentID model.ID) (bool, error) {
	sess, err := c.viewer(ctx)
	if err != nil {
		return false, c.fail(err)
	}

	v, err, _ := c.flight.Do("like:"+momentID.String(), func() (any, error) {
		defer c.begin()()

		c.mu.RLock()
		row, liked := feed.FindLike(c.state.Likes, sess.UserID, momentID)
		c.mu.RUnlock()

		if liked {
			if err := c.likes.Delete(ctx, row.ID); err != nil {
				return true, err
			}
			c.mu.Lock()
			kept := c.state.Likes[:0:0]
			for _, l := range c.state.Likes {
				if l.ID != row.ID {
					kept = append(kept, l)
				}
			}
			c.state.Likes = kept
			c.mu.Unlock()
			return false, nil
		}

		created, err := c.likes.Create(ctx, sess.UserID, momentID)
		if err != nil {
			return false, err
		}
		if created != nil {
			c.mu.Lock()
			c.state.Likes = append(c.state.Likes, *created)
			c.mu.Unlock()
		}
		return true, nil
	})
	if err != nil {
		return v.(bool), c.fail(err)
	}
	return v.(bool), nil
}
