package handler

import (
	"fmt"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/internal/service"
	"github.com/d60-Lab/moments/pkg/response"
)

// PostMoment 发布动态（multipart：caption + images）
// @Summary 发布动态
// @Tags 动态
// @Accept multipart/form-data
// @Produce json
// @Param caption formData string true "文字"
// @Param images formData file true "图片，可多张"
// @Success 200 {object} response.Response{data=model.Moment}
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/moments [post]
func (h *Handler) PostMoment(c *gin.Context) {
	caption := c.PostForm("caption")
	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["images"]
	}

	images := make([]service.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, fmt.Sprintf("open %s: %v", fh.Filename, err))
			return
		}
		defer f.Close()
		images = append(images, service.Image{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}

	m, err := h.svc.PostMoment(c.Request.Context(), caption, images)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, m)
}

// ToggleLike 点赞 / 取消点赞
// @Summary 切换点赞
// @Tags 动态
// @Produce json
// @Param moment_id path string true "moment ID"
// @Success 200 {object} response.Response{data=feed.Engagement}
// @Router /api/v1/moments/{moment_id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	id := model.ID(c.Param("moment_id"))
	if _, err := h.svc.ToggleLike(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, h.svc.Engagement(id))
}
