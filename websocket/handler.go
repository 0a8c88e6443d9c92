package websocket

import (
	"net/http"
	"time"

	"yesno-backend/logging"

	"github.com/gorilla/websocket"
)

const (
	// 写入超时
	writeWait = 10 * time.Second

	// 读取超时
	pongWait = 60 * time.Second

	// 发送ping间隔时间，必须小于pongWait
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 512

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域由 CORS 中间件控制
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve 升级连接并订阅问卷的实时结果，调用方负责可见性检查
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, surveyID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		SurveyID: surveyID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
	if !h.RegisterClient(client) {
		conn.Close()
		return nil
	}

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// readPump 只处理控制帧，客户端发来的消息被丢弃
func (h *Hub) readPump(client *Client) {
	defer func() {
		h.UnregisterClient(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("survey_id", client.SurveyID).Msg("读取实时连接失败")
			}
			return
		}
	}
}

// writePump 每条事件单独发送一帧
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
