package mq

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Bus 事件总线
type Bus interface {
	Publisher
	Subscribe(h Handler)
	Start(ctx context.Context) error
	Stop()
}

// NewBus 有 Redis 客户端时使用发布订阅，否则退回进程内分发
func NewBus(client *redis.Client) Bus {
	if client == nil {
		return NewLocalBus()
	}
	return NewRedisBus(client)
}

// Start 进程内总线无需启动
func (b *LocalBus) Start(context.Context) error { return nil }

// Stop 进程内总线无需关闭
func (b *LocalBus) Stop() {}
