package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zcradar/zcradar/internal/domain/entity"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源 (生产环境应限制)
	},
}

// MessageType 消息类型
type MessageType string

const (
	MessageTypeEvent MessageType = "event"
	MessageTypePing  MessageType = "ping"
	MessageTypePong  MessageType = "pong"
)

// WSMessage WebSocket 消息
type WSMessage struct {
	Type      MessageType       `json:"type"`
	Event     *entity.TaskEvent `json:"event,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// Client 订阅任务事件流的 WebSocket 客户端
type Client struct {
	ID      string
	BatchID string // 非空时只接收该批次的事件
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
	logger  *zap.Logger
}

// Hub WebSocket 连接中心。采集批次的事件经 Broadcast 推给所有订阅者
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	logger     *zap.Logger
	mu         sync.RWMutex
}

// NewHub 创建连接中心
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run 运行连接中心
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Event stream client connected",
				zap.String("client_id", client.ID),
				zap.String("batch_id", client.BatchID),
			)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Event stream client disconnected",
				zap.String("client_id", client.ID),
			)
		}
	}
}

// Broadcast 向所有订阅者推送任务事件。写缓冲满的慢客户端丢弃该条。
// 签名与 service.ProgressFunc 对齐，可直接挂到 BatchRunner 上。
func (h *Hub) Broadcast(event entity.TaskEvent) {
	msg := WSMessage{
		Type:      MessageTypeEvent,
		Event:     &event,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(&msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.BatchID != "" && event.BatchID != "" && client.BatchID != event.BatchID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// ClientCount 获取客户端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler WebSocket 处理器
type Handler struct {
	hub    *Hub
	logger *zap.Logger
}

// NewHandler 创建 WebSocket 处理器
func NewHandler(hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
	}
}

// ServeWS 处理 WebSocket 连接。可选 batch_id 查询参数过滤批次
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = r.RemoteAddr + "_" + time.Now().Format("20060102150405.000")
	}

	client := &Client{
		ID:      clientID,
		BatchID: r.URL.Query().Get("batch_id"),
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h.hub,
		logger:  h.logger,
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump 读取消息。事件流是单向的，客户端只需要心跳
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == MessageTypePing {
			data, _ := json.Marshal(&WSMessage{
				Type:      MessageTypePong,
				Timestamp: time.Now().Unix(),
			})
			select {
			case c.send <- data:
			default:
			}
		}
	}
}

// writePump 写入消息
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
