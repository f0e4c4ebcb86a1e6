package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 512
	sendBuffer     = 16
)

type conn struct {
	uid  string
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Hub keeps the open websocket connections of every user.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu    sync.RWMutex
	conns map[string]map[*conn]struct{}
}

// NewHub accepts any origin when allowedOrigins is empty or contains "*".
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	anyOrigin := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			anyOrigin = true
		}
		origins[origin] = struct{}{}
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if anyOrigin || origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
		logger: logger,
		conns:  make(map[string]map[*conn]struct{}),
	}
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, uid string) error {
	if uid == "" {
		return fmt.Errorf("uid is required")
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	c := &conn{
		uid:  uid,
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	h.add(c)
	defer h.remove(c)

	go h.writeLoop(c)

	ws.SetReadLimit(maxInboundSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Send queues n for every connection of uid and returns how many got it.
// A connection whose buffer is full is dropped.
func (h *Hub) Send(uid string, n model.Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("marshal notification", zap.String("uid", uid), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns[uid]))
	for c := range h.conns[uid] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		select {
		case <-c.done:
		case c.send <- payload:
			delivered++
		default:
			h.logger.Warn("notification buffer full, dropping connection", zap.String("uid", uid))
			c.close()
		}
	}
	return delivered
}

func (h *Hub) Connections(uid string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[uid])
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.uid]; !ok {
		h.conns[c.uid] = make(map[*conn]struct{})
	}
	h.conns[c.uid][c] = struct{}{}
	total := len(h.conns[c.uid])
	h.mu.Unlock()

	h.logger.Debug("notifications ws connected", zap.String("uid", c.uid), zap.Int("connections", total))
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	if set, ok := h.conns[c.uid]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.conns, c.uid)
		}
	}
	h.mu.Unlock()

	c.close()
	h.logger.Debug("notifications ws disconnected", zap.String("uid", c.uid))
}

func (h *Hub) writeLoop(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("notification write failed", zap.String("uid", c.uid), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
