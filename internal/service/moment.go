package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/logger"
)

// Image 待上传的一张图片
type Image struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Draft 发布框中尚未提交的内容
type Draft struct {
	Caption string
	Images  []Image
}

func (c *Coordinator) SetDraft(caption string, images []Image) {
	c.mu.Lock()
	c.state.Draft = Draft{Caption: caption, Images: append([]Image(nil), images...)}
	c.mu.Unlock()
}

func (c *Coordinator) Draft() Draft {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.state.Draft
	d.Images = append([]Image(nil), d.Images...)
	return d
}

// PostDraft 提交当前草稿
func (c *Coordinator) PostDraft(ctx context.Context) (*model.Moment, error) {
	d := c.Draft()
	return c.PostMoment(ctx, d.Caption, d.Images)
}

func validateMoment(caption string, images []Image) error {
	if strings.TrimSpace(caption) == "" {
		return &ValidationError{Field: "caption", Reason: "is required"}
	}
	if len(images) == 0 {
		return &ValidationError{Field: "images", Reason: "at least one image is required"}
	}
	for _, img := range images {
		if img.Body == nil {
			return &ValidationError{Field: "images", Reason: fmt.Sprintf("%q has no content", img.Name)}
		}
	}
	return nil
}

// uploadPath <unixmillis>_<uuid>_<name>
func (c *Coordinator) uploadPath(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = "image"
	}
	return fmt.Sprintf("%d_%s_%s", c.now().UnixMilli(), uuid.NewString(), name)
}

// PostMoment 依次上传图片，写入 moment（image_url 为 JSON 数组），然后重载并清空草稿。
// 任一上传失败即中止：不写 moment，已上传的对象保留。
// 校验失败不发任何请求，也不记录到错误槽。
func (c *Coordinator) PostMoment(ctx context.Context, caption string, images []Image) (*model.Moment, error) {
	if err := validateMoment(caption, images); err != nil {
		return nil, err
	}
	sess, err := c.viewer(ctx)
	if err != nil {
		return nil, c.fail(err)
	}
	defer c.begin()()

	urls := make(model.ImageURLs, 0, len(images))
	for i, img := range images {
		p := c.uploadPath(img.Name)
		if _, err := c.gw.UploadFile(ctx, c.bucket, p, img.Body, img.ContentType); err != nil {
			logger.Warn("upload failed",
				zap.String("user", sess.UserID.String()),
				zap.Int("index", i),
				zap.String("path", p),
				zap.Error(err))
			return nil, c.fail(err)
		}
		urls = append(urls, c.gw.PublicURL(c.bucket, p))
	}

	m, err := c.moments.Create(ctx, sess.UserID, urls, caption)
	if err != nil {
		return nil, c.fail(err)
	}
	logger.Info("moment posted", zap.String("user", sess.UserID.String()), zap.Int("images", len(urls)))

	c.SetDraft("", nil)
	if err := c.Reload(ctx); err != nil {
		return m, err
	}
	return m, nil
}
