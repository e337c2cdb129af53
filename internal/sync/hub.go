package sync

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"luminousdeep/pkg/logging"
)

const writeTimeout = 2 * time.Second

// Hub fans JSON events out to TCP and WebSocket subscribers. Content events
// go to everyone; reader events go only to that reader's WebSocket
// connections, keyed by the user id resolved when the socket was opened.
//
// Every write to a connection happens under mu, so each connection has a
// single writer.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]struct{}
	wsClients map[*websocket.Conn]string
	logger    *slog.Logger
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[net.Conn]struct{}),
		wsClients: make(map[*websocket.Conn]string),
		logger:    logging.Component(logger, "sync-hub"),
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS sends the welcome frame and registers ws for userID ("" for an
// anonymous subscriber). Both happen under the hub lock so the welcome
// never interleaves with a broadcast.
func (h *Hub) AddWS(ws *websocket.Conn, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	welcome := []byte(`{"type":"welcome","transport":"websocket"}` + "\n")
	if err := writeWS(ws, welcome); err != nil {
		return err
	}
	h.wsClients[ws] = userID
	return nil
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON writes v as one JSON line to every subscriber. Subscribers
// that fail a write are dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("marshal event", "error", err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		w := bufio.NewWriter(c)
		if _, err := w.Write(b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
	}

	for ws := range h.wsClients {
		if err := writeWS(ws, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

// SendToUser writes v only to the WebSocket connections opened by userID.
// TCP subscribers are anonymous and never receive it.
func (h *Hub) SendToUser(userID string, v any) {
	if userID == "" {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("marshal event", "error", err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws, owner := range h.wsClients {
		if owner != userID {
			continue
		}
		if err := writeWS(ws, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

func writeWS(ws *websocket.Conn, b []byte) error {
	if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, b)
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

// AddTCP sends the welcome line and registers conn, under the hub lock.
func (h *Hub) AddTCP(conn net.Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := fmt.Sprintf("{\"type\":\"welcome\",\"message\":\"connected\",\"clients\":%d}\n", len(h.clients)+1)
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write([]byte(msg)); err != nil {
		return err
	}
	h.clients[conn] = struct{}{}
	return nil
}
