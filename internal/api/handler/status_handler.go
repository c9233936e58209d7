package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/pkg/response"
)

// Status 加载状态和最近一次错误
// @Summary 状态
// @Tags 状态
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/status [get]
func (h *Handler) Status(c *gin.Context) {
	var last string
	if err := h.svc.Errors().Last(); err != nil {
		last = err.Error()
	}
	response.Success(c, gin.H{"loading": h.svc.Loading(), "last_error": last})
}

// ClearError 清除最近一次错误
// @Summary 清除错误
// @Tags 状态
// @Success 200 {object} response.Response
// @Router /api/v1/status/error [delete]
func (h *Handler) ClearError(c *gin.Context) {
	h.svc.Errors().Clear()
	response.Success(c, nil)
}
