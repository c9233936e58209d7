package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/logger"
)

// LoadComments 拉取某条 moment 的评论。
// 失败只记日志，已有评论列表保持不变。
func (c *Coordinator) LoadComments(ctx context.Context, momentID model.ID) {
	defer c.begin()()

	list, err := c.comments.ListByMoment(ctx, momentID)
	if err != nil {
		logger.Warn("load comments failed", zap.String("moment", momentID.String()), zap.Error(err))
		return
	}
	c.mu.Lock()
	c.state.CommentsFor = momentID
	c.state.Comments = list
	c.mu.Unlock()
}

// AddComment 发表评论（去除首尾空白），成功后只重载该 moment 的评论
func (c *Coordinator) AddComment(ctx context.Context, momentID model.ID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &ValidationError{Field: "text", Reason: "is required"}
	}
	sess, err := c.viewer(ctx)
	if err != nil {
		return nil, c.fail(err)
	}

	done := c.begin()
	created, err := c.comments.Create(ctx, momentID, sess.UserID, text)
	done()
	if err != nil {
		return nil, c.fail(err)
	}
	c.LoadComments(ctx, momentID)
	return created, nil
}
