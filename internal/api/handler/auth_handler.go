package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/pkg/response"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username" binding:"required"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUp 注册
// @Summary 注册并创建 profile
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body signUpRequest true "注册信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/auth/signup [post]
func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user": resp.User, "signed_in": resp.AccessToken != ""})
}

// SignIn 登录
// @Summary 邮箱密码登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body signInRequest true "登录信息"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/signin [post]
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user": resp.User})
}

// SignOut 退出
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/auth/signout [post]
func (h *Handler) SignOut(c *gin.Context) {
	if err := h.svc.SignOut(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Me 当前会话
// @Summary 当前登录用户
// @Tags 认证
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	sess, err := h.svc.Me(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": sess.UserID, "email": sess.Email, "expires_at": sess.ExpiresAt})
}
