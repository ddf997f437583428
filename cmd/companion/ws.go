package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pefman/w40k-companion/internal/models"
)

// ========================= WebSocket Feed =========================
// Subscribers attach to one session and receive the full session state
// after every mutation. The feed is one-way; clients mutate over HTTP.

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(m models.WsMsg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(m)
}

type hub struct {
	mu   sync.RWMutex
	subs map[string]map[*wsClient]bool
	log  *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &hub{subs: make(map[string]map[*wsClient]bool), log: log}
}

func (h *hub) add(sessionID string, c *wsClient) {
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*wsClient]bool)
	}
	h.subs[sessionID][c] = true
	h.mu.Unlock()
}

func (h *hub) remove(sessionID string, c *wsClient) {
	h.mu.Lock()
	if set := h.subs[sessionID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, sessionID)
		}
	}
	h.mu.Unlock()
}

// broadcast sends to every subscriber of one session. Failed writes drop
// the subscriber; the read loop notices the closed connection and exits.
func (h *hub) broadcast(sessionID string, m models.WsMsg) {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.subs[sessionID]))
	for c := range h.subs[sessionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(m); err != nil {
			h.log.Debug("ws write failed, dropping subscriber",
				zap.String("session", sessionID), zap.Error(err))
			c.conn.Close()
			h.remove(sessionID, c)
		}
	}
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session query parameter required", http.StatusBadRequest)
		return
	}
	snap, err := s.store.Snapshot(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{conn: conn}
	s.hub.add(sessionID, c)
	s.log.Info("ws subscriber joined",
		zap.String("session", sessionID), zap.String("remote", r.RemoteAddr))

	// Send the current state straight away so the client can render.
	if err := c.send(models.WsMsg{Type: "state", Data: snap}); err != nil {
		conn.Close()
		s.hub.remove(sessionID, c)
		return
	}

	go func() {
		defer func() {
			conn.Close()
			s.hub.remove(sessionID, c)
			s.log.Info("ws subscriber left", zap.String("session", sessionID))
		}()
		for {
			// Drain and ignore client messages; the socket is read to
			// detect disconnects and honor control frames.
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
