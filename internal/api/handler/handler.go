package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/moments/internal/gateway"
	"github.com/d60-Lab/moments/internal/service"
	"github.com/d60-Lab/moments/pkg/response"
)

// Handler 本地 HTTP 接口，单会话，全部委托给 Coordinator
type Handler struct {
	svc *service.Coordinator
}

func NewHandler(svc *service.Coordinator) *Handler {
	return &Handler{svc: svc}
}

// fail 把协调器错误映射成响应码，消息原样透出
func fail(c *gin.Context, err error) {
	var (
		vErr    *service.ValidationError
		authErr *gateway.AuthError
		reqErr  *gateway.RequestError
		upErr   *gateway.UploadError
	)
	switch {
	case errors.As(err, &vErr), errors.Is(err, service.ErrFollowSelf):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotAuthenticated):
		response.Unauthorized(c, err.Error())
	case errors.As(err, &authErr):
		if authErr.Status == http.StatusUnprocessableEntity {
			response.Conflict(c, err.Error())
			return
		}
		response.Unauthorized(c, err.Error())
	case errors.As(err, &reqErr), errors.As(err, &upErr):
		response.BadGateway(c, err)
	default:
		response.InternalError(c, err)
	}
}
