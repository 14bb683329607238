package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"casino-backend/internal/models"
	"casino-backend/internal/services"
	"casino-backend/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebSocketHub tracks live connections and fans out server pushes. It
// implements services.Broadcaster.
type WebSocketHub struct {
	log     *zap.Logger
	mu      sync.RWMutex
	clients map[string]*Client
}

type Client struct {
	hub       *WebSocketHub
	conn      *websocket.Conn
	sess      *session.Session
	send      chan []byte
	closeOnce sync.Once
}

func NewWebSocketHub(log *zap.Logger) *WebSocketHub {
	return &WebSocketHub{
		log:     log.Named("hub"),
		clients: make(map[string]*Client),
	}
}

func (hub *WebSocketHub) register(c *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.clients[c.sess.ID()] = c
}

func (hub *WebSocketHub) unregister(c *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if cur, ok := hub.clients[c.sess.ID()]; ok && cur == c {
		delete(hub.clients, c.sess.ID())
	}
	c.closeSend()
}

func (hub *WebSocketHub) Count() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

func (hub *WebSocketHub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		hub.log.Error("failed to marshal broadcast", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		c.enqueue(data)
	}
}

func (hub *WebSocketHub) BroadcastLeaderboard(standings []models.Standing) {
	hub.broadcast(Message{Type: "leaderboard_update", Data: standings})
}

func (hub *WebSocketHub) BroadcastChat(msg models.ChatMessage) {
	hub.broadcast(Message{Type: "chat_broadcast", Data: msg})
}

func (hub *WebSocketHub) BroadcastNotice(text string) {
	hub.broadcast(Message{Type: "notice", Data: models.Notice{Text: text}})
}

// CloseIdle closes every connection that has sent nothing for timeout. The
// read loop then runs the normal disconnect path, forfeiting any open game.
func (hub *WebSocketHub) CloseIdle(timeout time.Duration) int {
	now := time.Now()
	var idle []*Client

	hub.mu.RLock()
	for _, c := range hub.clients {
		if c.sess.IdleFor(now) > timeout {
			idle = append(idle, c)
		}
	}
	hub.mu.RUnlock()

	for _, c := range idle {
		hub.log.Info("closing idle connection", zap.String("conn", c.sess.ID()))
		c.conn.Close()
	}
	return len(idle)
}

// Stop closes every connection.
func (hub *WebSocketHub) Stop() {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for _, c := range hub.clients {
		c.conn.Close()
	}
}

// enqueue never blocks. Broadcasts run under the hub lock and replies run on
// the read loop, so neither can race the close in unregister.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("send buffer full, dropping message", zap.String("conn", c.sess.ID()))
	}
}

func (c *Client) reply(typ string, data interface{}) {
	b, err := json.Marshal(Message{Type: typ, Data: data})
	if err != nil {
		c.hub.log.Error("failed to marshal reply", zap.String("type", typ), zap.Error(err))
		return
	}
	c.enqueue(b)
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type WebSocketHandler struct {
	hub      *WebSocketHub
	engine   *services.GameEngine
	auth     *services.AuthService
	chat     *services.ChatService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *WebSocketHub, engine *services.GameEngine, auth *services.AuthService, chat *services.ChatService, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		engine: engine,
		auth:   auth,
		chat:   chat,
		log:    log.Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes. Requests on one connection are handled strictly in arrival order.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		sess: session.New(models.GenerateConnectionID(), c.ClientIP()),
		send: make(chan []byte, sendBuffer),
	}
	h.hub.register(client)
	go client.writePump()

	h.log.Debug("connection opened", zap.String("conn", client.sess.ID()), zap.String("origin", client.sess.Origin()))
	h.readPump(c.Request.Context(), client)
}

func (h *WebSocketHandler) readPump(ctx context.Context, c *Client) {
	defer func() {
		h.engine.Disconnect(c.sess)
		h.hub.unregister(c)
		c.conn.Close()
		h.log.Debug("connection closed",
			zap.String("conn", c.sess.ID()),
			zap.Duration("duration", time.Since(c.sess.ConnectedAt())),
		)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", zap.String("conn", c.sess.ID()), zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.sess.Touch()

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(c, services.ErrInvalidMessage)
			continue
		}
		h.dispatch(context.WithoutCancel(ctx), c, msg)
	}
}
