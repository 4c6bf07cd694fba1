package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/copyconf/internal/logger"
	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// liveEvent is one websocket frame. Type is start, result or summary.
type liveEvent struct {
	Type    string             `json:"type"`
	RunID   string             `json:"run_id"`
	Runtime string             `json:"runtime,omitempty"`
	Device  int                `json:"device"`
	Result  *memcpytest.Result `json:"result,omitempty"`
	Totals  *memcpytest.Totals `json:"totals,omitempty"`
}

type liveClient struct {
	conn *ws.Conn
	mu   sync.Mutex
}

func (c *liveClient) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

type hub struct {
	mu      sync.RWMutex
	clients map[*liveClient]struct{}
	log     logger.Logger
}

func newHub(log logger.Logger) *hub {
	return &hub{clients: make(map[*liveClient]struct{}), log: log}
}

func (h *hub) register(c *liveClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

func (h *hub) unregister(c *liveClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast sends evt to every client, dropping clients whose write fails.
func (h *hub) broadcast(evt liveEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		h.log.Warn("live: marshal event", "error", err)
		return
	}
	h.mu.RLock()
	clients := make([]*liveClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(ws.TextMessage, data); err != nil {
			h.log.Debug("live: dropping client", "error", err)
			h.unregister(c)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*liveClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		_ = c.write(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseGoingAway, "server shutting down"))
		_ = c.conn.Close()
	}
}

var upgrader = ws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleLive streams events for every run started through the API until
// the client disconnects.
func (s *Server) handleLive(c *echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("live: upgrade failed", "error", err)
		return nil
	}
	client := &liveClient{conn: conn}
	n := s.hub.register(client)
	s.log.Info("live client connected", "clients", n)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				client.mu.Lock()
				err := conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
				client.mu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.unregister(client)
	s.log.Info("live client disconnected")
	return nil
}
