package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/response"
)

type followRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Follow 关注用户，随后全量重载
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body followRequest true "被关注用户"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Follow(c.Request.Context(), model.ID(req.UserID)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": true})
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body followRequest true "取消关注的用户"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Unfollow(c.Request.Context(), model.ID(req.UserID)); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": false})
}

// ToggleFollow 切换关注状态
// @Summary 切换关注
// @Tags 关系链
// @Produce json
// @Param user_id path string true "用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/toggle/{user_id} [post]
func (h *Handler) ToggleFollow(c *gin.Context) {
	following, err := h.svc.ToggleFollow(c.Request.Context(), model.ID(c.Param("user_id")))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"following": following})
}

// ListFollowing 当前用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	state := h.svc.Snapshot()
	list := make([]model.ID, len(state.Following))
	for i, f := range state.Following {
		list[i] = f.FollowingID
	}
	response.Success(c, gin.H{"total": len(list), "list": list})
}
