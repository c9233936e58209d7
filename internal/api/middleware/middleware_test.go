package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/d60-Lab/moments/pkg/logger"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusBadGateway, "boom") })
	return r
}

func get(r http.Handler, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(0.0001, 2))
	assert.Equal(t, http.StatusOK, get(r, "/ok"))
	assert.Equal(t, http.StatusOK, get(r, "/ok"))
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ok"))
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newEngine(RateLimit(0, 0))
	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ok"))
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.L()
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(prev) })

	r := newEngine(Logger())
	get(r, "/ok")
	get(r, "/boom")

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
	}
}
