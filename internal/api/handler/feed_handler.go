package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/internal/feed"
	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/response"
)

// feedEntry feed 条目 + 封面 + 点赞
type feedEntry struct {
	feed.Item
	Cover      string          `json:"cover"`
	Engagement feed.Engagement `json:"engagement"`
}

// Feed 关注的人的动态
// @Summary 获取 feed
// @Tags 动态
// @Produce json
// @Success 200 {object} response.Response{data=[]feedEntry}
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	items := h.svc.Feed()
	out := make([]feedEntry, len(items))
	for i, it := range items {
		out[i] = feedEntry{Item: it, Cover: it.Moment.Cover(), Engagement: h.svc.Engagement(it.Moment.ID)}
	}
	response.Success(c, out)
}

// Reload 重新拉取全部数据
// @Summary 重新加载
// @Tags 动态
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/reload [post]
func (h *Handler) Reload(c *gin.Context) {
	if err := h.svc.Reload(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Album 某个作者的全部动态，定位到 moment_id
// @Summary 作者相册
// @Tags 动态
// @Produce json
// @Param user_id path string true "作者ID"
// @Param moment_id query string false "当前 moment"
// @Success 200 {object} response.Response
// @Router /api/v1/users/{user_id}/album [get]
func (h *Handler) Album(c *gin.Context) {
	album := h.svc.Album(model.ID(c.Param("user_id")), model.ID(c.Query("moment_id")))
	response.Success(c, gin.H{
		"author":   album.Author,
		"moments":  album.Moments,
		"images":   album.Images,
		"index":    album.Index,
		"has_prev": album.HasPrev(),
		"has_next": album.HasNext(),
	})
}

// Profile 当前用户主页
// @Summary 个人主页
// @Tags 用户
// @Produce json
// @Success 200 {object} response.Response{data=feed.Summary}
// @Router /api/v1/profile [get]
func (h *Handler) Profile(c *gin.Context) {
	response.Success(c, h.svc.Summary())
}

// SearchUsers 按用户名或邮箱搜索
// @Summary 搜索用户
// @Tags 用户
// @Produce json
// @Param q query string false "关键字"
// @Success 200 {object} response.Response
// @Router /api/v1/users [get]
func (h *Handler) SearchUsers(c *gin.Context) {
	profiles := h.svc.Search(c.Query("q"))
	out := make([]gin.H, len(profiles))
	for i, p := range profiles {
		out[i] = gin.H{"id": p.ID, "username": p.Username, "email": p.Email, "following": h.svc.IsFollowing(p.ID)}
	}
	response.Success(c, out)
}
