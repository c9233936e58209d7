package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/response"
)

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

// ListComments 拉取评论；拉取失败时返回上一次成功加载的列表
// @Summary 评论列表
// @Tags 评论
// @Produce json
// @Param moment_id path string true "moment ID"
// @Success 200 {object} response.Response
// @Router /api/v1/moments/{moment_id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	h.svc.LoadComments(c.Request.Context(), model.ID(c.Param("moment_id")))
	momentID, list := h.svc.Comments()
	response.Success(c, gin.H{"moment_id": momentID, "list": list})
}

// AddComment 发表评论
// @Summary 发表评论
// @Tags 评论
// @Accept json
// @Produce json
// @Param moment_id path string true "moment ID"
// @Param request body commentRequest true "评论内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/moments/{moment_id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if _, err := h.svc.AddComment(c.Request.Context(), model.ID(c.Param("moment_id")), req.Text); err != nil {
		fail(c, err)
		return
	}
	momentID, list := h.svc.Comments()
	response.Success(c, gin.H{"moment_id": momentID, "list": list})
}
