package monitor

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/d60-Lab/moments/config"
)

// Init 初始化 Sentry；DSN 为空时不启用，返回 false。
func Init(cfg config.SentryConfig, release string) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Capture 上报错误（未初始化时 sentry-go 自身为 no-op）
func Capture(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush 等待缓冲事件发送
func Flush() { sentry.Flush(2 * time.Second) }
