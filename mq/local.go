package mq

import (
	"context"
	"sync"
)

// LocalBus 进程内事件分发，未启用 Redis 时使用
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewLocalBus 创建进程内事件总线
func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

// Subscribe 注册处理函数
func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, h)
	b.mu.Unlock()
}

// Publish 同步调用全部处理函数
func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(ev)
	}
	return nil
}
