package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// diagBacklog is the number of trace lines buffered per client.
const diagBacklog = 64

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// DiagHub fans the modem frame trace out to websocket clients. It is the
// modem's echo sink: every Write is broadcast as one text message. Lines are
// dropped for clients that cannot keep up.
type DiagHub struct {
	Logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewDiagHub creates a hub with no clients.
func NewDiagHub(logger *slog.Logger) *DiagHub {
	return &DiagHub{Logger: logger, clients: map[*websocket.Conn]chan []byte{}}
}

// Write implements io.Writer.
func (h *DiagHub) Write(p []byte) (int, error) {
	msg := bytes.TrimRight(bytes.Clone(p), "\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.Logger.Debug("diagnostics client too slow, line dropped", "remote", conn.RemoteAddr())
		}
	}
	return len(p), nil
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *DiagHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan []byte, diagBacklog)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	h.Logger.Info("diagnostics client connected", "remote", conn.RemoteAddr())

	go func() {
		for msg := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// The client never sends; reading only detects the close.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Clients returns the number of connected clients.
func (h *DiagHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *DiagHub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		h.remove(conn)
	}
}

func (h *DiagHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	ch, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(ch)
	if err := conn.Close(); err != nil {
		h.Logger.Debug("close websocket", "error", err)
	}
	h.Logger.Info("diagnostics client disconnected", "remote", conn.RemoteAddr())
}
