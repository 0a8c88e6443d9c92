package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"yesno-backend/logging"

	"github.com/redis/go-redis/v9"
)

// ChannelName 实时结果事件的发布订阅频道
const ChannelName = "yesno:live"

// RedisBus 基于 Redis 发布订阅的事件总线，每个实例都会收到全部事件
type RedisBus struct {
	client    *redis.Client
	channel   string
	mu        sync.RWMutex
	handlers  []Handler
	isRunning bool
	pubsub    *redis.PubSub
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewRedisBus 创建 Redis 事件总线
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{
		client:   client,
		channel:  ChannelName,
		stopChan: make(chan struct{}),
	}
}

// Subscribe 注册处理函数，需在 Start 之前调用
func (r *RedisBus) Subscribe(h Handler) {
	r.mu.Lock()
	r.handlers = append(r.handlers, h)
	r.mu.Unlock()
}

// Publish 发布事件
func (r *RedisBus) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Start 订阅频道并启动消费循环
func (r *RedisBus) Start(ctx context.Context) error {
	if r.isRunning {
		return nil
	}

	r.pubsub = r.client.Subscribe(ctx, r.channel)
	// 等待订阅确认，避免启动后立即发布的事件丢失
	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.pubsub.Close()
		return fmt.Errorf("订阅频道失败: %w", err)
	}

	r.isRunning = true
	r.wg.Add(1)
	go r.consumeLoop()

	logging.Info().Str("channel", r.channel).Msg("Redis事件订阅已启动")
	return nil
}

// Stop 关闭订阅
func (r *RedisBus) Stop() {
	if !r.isRunning {
		return
	}
	close(r.stopChan)
	r.pubsub.Close()
	r.wg.Wait()
	r.isRunning = false
	logging.Info().Msg("Redis事件订阅已关闭")
}

func (r *RedisBus) consumeLoop() {
	defer r.wg.Done()

	ch := r.pubsub.Channel()
	for {
		select {
		case <-r.stopChan:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logging.Warn().Err(err).Msg("解析事件失败")
				continue
			}
			r.dispatch(ev)
		}
	}
}

func (r *RedisBus) dispatch(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		h(ev)
	}
}
