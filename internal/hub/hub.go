// Package hub tracks the realtime websocket connections of the dev server,
// grouped by chat user and by signaling room.
package hub

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the write side of a realtime connection. Writes must be safe for
// concurrent use; broadcasts happen outside the hub lock.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// WSConn wraps a gorilla websocket connection with a write lock, since the
// underlying connection supports at most one concurrent writer.
type WSConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// NewWSConn wraps ws for use with a Hub.
func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

// WriteJSON writes the JSON encoding of v as a single message.
func (c *WSConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Close closes the underlying connection.
func (c *WSConn) Close() error {
	return c.ws.Close()
}

// Hub tracks live connections. Chat connections are grouped per user so a
// message can reach every open widget of the same visitor; signaling
// connections are grouped per room.
type Hub struct {
	mu    sync.Mutex
	users map[string]map[Conn]struct{}
	rooms map[string]map[Conn]struct{}

	logger *slog.Logger
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	return &Hub{
		users:  make(map[string]map[Conn]struct{}),
		rooms:  make(map[string]map[Conn]struct{}),
		logger: logger.With(slog.String("module", "hub")),
	}
}

// AddUser registers a chat connection for the given user.
func (h *Hub) AddUser(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[Conn]struct{})
	}
	h.users[userID][conn] = struct{}{}
}

// RemoveUser unregisters a chat connection. Empty groups are dropped.
func (h *Hub) RemoveUser(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.users[userID], conn)
	if len(h.users[userID]) == 0 {
		delete(h.users, userID)
	}
}

// AddRoom registers a signaling connection for the given room.
func (h *Hub) AddRoom(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[Conn]struct{})
	}
	h.rooms[roomID][conn] = struct{}{}
}

// RemoveRoom unregisters a signaling connection. Empty groups are dropped.
func (h *Hub) RemoveRoom(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], conn)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
}

// UserConns returns the number of live chat connections for the user.
func (h *Hub) UserConns(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[userID])
}

// BroadcastUser sends payload to every chat connection of the user.
// Connections that fail to write are dropped.
func (h *Hub) BroadcastUser(userID string, payload any) {
	for _, conn := range h.snapshot(h.users, userID) {
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.Debug("Dropping chat connection",
				slog.String("userID", userID),
				slog.String("err", err.Error()))
			h.RemoveUser(userID, conn)
			_ = conn.Close()
		}
	}
}

// BroadcastRoom relays payload to every connection in the room except the
// sender. Connections that fail to write are dropped.
func (h *Hub) BroadcastRoom(roomID string, payload any, sender Conn) {
	for _, conn := range h.snapshot(h.rooms, roomID) {
		if conn == sender {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			h.logger.Debug("Dropping signaling connection",
				slog.String("roomID", roomID),
				slog.String("err", err.Error()))
			h.RemoveRoom(roomID, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) snapshot(groups map[string]map[Conn]struct{}, id string) []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := make([]Conn, 0, len(groups[id]))
	for conn := range groups[id] {
		conns = append(conns, conn)
	}
	return conns
}
