// Copyright 2026 The Gatehouse Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quarry/gatehouse/internal/gateway"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 90 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// hub fans gateway decisions out to websocket subscribers. Slow
// subscribers are dropped rather than allowed to stall the gateway.
type hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func newHub(logger *slog.Logger) *hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &hub{logger: logger, clients: make(map[*websocket.Conn]chan []byte)}
}

// serve upgrades the request and streams decisions until the client
// disconnects.
func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("daemon: websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	h.logger.Info("daemon: event subscriber connected", "remote", conn.RemoteAddr())

	go h.writeLoop(conn, send)
	h.readLoop(conn)
}

// readLoop discards inbound frames and detects disconnects.
func (h *hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

func (h *hub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(wsWriteWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(conn)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				h.drop(conn)
				return
			}
		}
	}
}

// broadcast sends one decision to every subscriber, dropping any whose
// buffer is full.
func (h *hub) broadcast(out gateway.Outcome) {
	msg, err := json.Marshal(out)
	if err != nil {
		h.logger.Error("daemon: marshal outcome for stream", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			h.logger.Warn("daemon: dropping slow event subscriber", "remote", conn.RemoteAddr())
			delete(h.clients, conn)
			close(send)
			conn.Close()
		}
	}
}

func (h *hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
		conn.Close()
	}
}
