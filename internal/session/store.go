// Package session persists the signed-in identity between runs.
//
// The gateway reads the store on every request instead of caching the token, so a
// sign-out performed by another process is observed on the next call.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/moments/config"
	"github.com/d60-Lab/moments/internal/model"
	"github.com/d60-Lab/moments/pkg/database"
)

// ErrNoSession 未登录
var ErrNoSession = errors.New("session: no active session")

// Store 会话存储
type Store interface {
	// Load 返回已保存的会话；没有时返回 ErrNoSession
	Load(ctx context.Context) (*model.Session, error)
	Save(ctx context.Context, s *model.Session) error
	Clear(ctx context.Context) error
}

// Open 按 session.driver 构造存储；返回的 close 释放底层的数据库或 redis 连接
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch cfg.Session.Driver {
	case "file":
		return NewFileStore(os.ExpandEnv(cfg.Session.FilePath)), noopClose, nil
	case "database":
		db, err := database.InitDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		st, err := NewDBStore(ctx, db, cfg.Session.Key)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		return st, sqlDB.Close, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("session: redis ping: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.KeyPrefix+cfg.Session.Key), client.Close, nil
	case "memory":
		return NewMemoryStore(), noopClose, nil
	default:
		return nil, nil, fmt.Errorf("session: unknown driver %q", cfg.Session.Driver)
	}
}

func noopClose() error { return nil }
