package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yesno-backend/config"
	"yesno-backend/logging"

	"github.com/redis/go-redis/v9"
)

// ErrRedisNotAvailable 未启用或连接不上 Redis
var ErrRedisNotAvailable = errors.New("redis not available")

// NewClient 按配置创建 Redis 客户端；未启用时返回 nil
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Redis未启用，使用进程内限流、锁与事件分发")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisNotAvailable, err)
	}

	logging.Info().Str("addr", cfg.Addr).Msg("Redis连接成功")
	return client, nil
}

// Ping 检查 Redis，client 为 nil 时返回 ErrRedisNotAvailable
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return ErrRedisNotAvailable
	}
	return client.Ping(ctx).Err()
}
