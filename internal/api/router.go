// Package api 本地 HTTP 接口：把客户端的各个视图以 JSON 形式暴露出来
package api

import (
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/moments/docs"
	"github.com/d60-Lab/moments/internal/api/handler"
	"github.com/d60-Lab/moments/internal/api/middleware"
)

type RouterOptions struct {
	Mode        string
	RateLimit   float64
	RateBurst   int
	ServiceName string
	// Tracing 为 true 时挂 otelgin
	Tracing bool
	// Sentry 为 true 时挂 sentrygin（需先 monitor.Init）
	Sentry bool
}

// NewRouter 注册所有路由
func NewRouter(h *handler.Handler, opts RouterOptions) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.Tracing {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1", middleware.RateLimit(opts.RateLimit, opts.RateBurst))
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.SignUp)
		auth.POST("/signin", h.SignIn)
		auth.POST("/signout", h.SignOut)
		auth.GET("/me", h.Me)

		v1.GET("/feed", h.Feed)
		v1.POST("/reload", h.Reload)
		v1.GET("/profile", h.Profile)
		v1.GET("/users", h.SearchUsers)
		v1.GET("/users/:user_id/album", h.Album)

		rel := v1.Group("/relations")
		rel.POST("/follow", h.Follow)
		rel.POST("/unfollow", h.Unfollow)
		rel.GET("/following", h.ListFollowing)
		rel.POST("/toggle/:user_id", h.ToggleFollow)

		m := v1.Group("/moments")
		m.POST("", h.PostMoment)
		m.POST("/:moment_id/like", h.ToggleLike)
		m.GET("/:moment_id/comments", h.ListComments)
		m.POST("/:moment_id/comments", h.AddComment)

		v1.GET("/status", h.Status)
		v1.DELETE("/status/error", h.ClearError)
	}
	return r
}
