package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"yesno-backend/logging"
	"yesno-backend/metrics"
	"yesno-backend/mq"

	"github.com/gorilla/websocket"
)

// Client 订阅某个问卷实时结果的连接
type Client struct {
	SurveyID string

	conn *websocket.Conn
	send chan []byte
}

// Hub 维护活跃的客户端集合并按问卷广播消息
type Hub struct {
	// 已注册的客户端，按问卷ID分组
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// NewHub 创建Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 处理注册与注销，直到 ctx 取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.SurveyID]; !ok {
				h.clients[client.SurveyID] = make(map[*Client]bool)
			}
			h.clients[client.SurveyID][client] = true
			n := len(h.clients[client.SurveyID])
			h.mu.Unlock()
			metrics.LiveConnections.Inc()
			logging.Debug().Str("survey_id", client.SurveyID).Int("clients", n).Msg("实时连接已注册")

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			logging.Debug().Str("survey_id", client.SurveyID).Msg("实时连接已注销")
		}
	}
}

// remove 调用方需持有写锁
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.SurveyID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.LiveConnections.Dec()
	if len(clients) == 0 {
		delete(h.clients, client.SurveyID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// HandleEvent 把总线事件推送给订阅该问卷的客户端
func (h *Hub) HandleEvent(ev mq.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error().Err(err).Msg("序列化实时事件失败")
		return
	}
	h.BroadcastToSurvey(ev.SurveyID, payload)
}

// BroadcastToSurvey 向问卷的所有客户端广播，发送缓冲区已满的客户端会被断开
func (h *Hub) BroadcastToSurvey(surveyID string, payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for client := range h.clients[surveyID] {
		select {
		case client.send <- payload:
			sent++
		default:
			h.remove(client)
		}
	}
	return sent
}

// ClientCount 问卷当前连接数
func (h *Hub) ClientCount(surveyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[surveyID])
}

// RegisterClient 注册客户端，Hub 已停止时返回 false
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// UnregisterClient 注销客户端
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
