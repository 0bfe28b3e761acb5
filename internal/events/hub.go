package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// viewer is one websocket client following a set of dates.
type viewer struct {
	conn  *websocket.Conn
	send  chan []byte
	dates map[string]bool
}

// Hub pushes booking events to connected calendar viewers. A viewer with
// no date subscription receives every event.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	viewers map[*viewer]struct{}
}

// NewHub accepts websocket upgrades from allowedOrigins; "*" or an empty
// list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
		viewers: make(map[*viewer]struct{}),
	}
}

func (h *Hub) Emit(_ context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("ws_marshal_failed type=%s err=%v", e.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for v := range h.viewers {
		if len(v.dates) > 0 && !v.dates[e.Date] {
			continue
		}
		select {
		case v.send <- data:
		default:
			// slow client, skip
		}
	}
}

// Viewers reports the number of connected clients.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// ServeWS upgrades the request. ?date=YYYY-MM-DD subscribes to one date up
// front; clients may send {"type":"subscribe","date":...} later.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws_upgrade_failed err=%v", err)
		return
	}

	v := &viewer{
		conn:  conn,
		send:  make(chan []byte, 64),
		dates: make(map[string]bool),
	}
	if d := c.Query("date"); d != "" {
		v.dates[d] = true
	}

	h.register(v)
	go h.writePump(v)
	h.readPump(v)
}

func (h *Hub) register(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewers[v] = struct{}{}
}

func (h *Hub) unregister(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.viewers[v]; ok {
		delete(h.viewers, v)
		close(v.send)
	}
}

func (h *Hub) readPump(v *viewer) {
	defer func() {
		h.unregister(v)
		v.conn.Close()
	}()

	v.conn.SetReadLimit(maxMsgSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := v.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd struct {
			Type string `json:"type"`
			Date string `json:"date"`
		}
		if err := json.Unmarshal(msg, &cmd); err != nil || cmd.Date == "" {
			continue
		}

		h.mu.Lock()
		switch cmd.Type {
		case "subscribe":
			v.dates[cmd.Date] = true
		case "unsubscribe":
			delete(v.dates, cmd.Date)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) writePump(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
