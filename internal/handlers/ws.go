package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/floatchat/floatchat/internal/hub"
	"github.com/gorilla/websocket"
)

type wsIncoming struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HandleWS serves the per-user chat websocket. The connection greets the
// client, answers pings, echoes chat messages back to the sender, and
// broadcasts them to the user's other channels with an echoed marker.
func (m *Main) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("Failed to upgrade websocket", slog.String(errLoggerKey, err.Error()))
		return
	}

	conn := hub.NewWSConn(ws)
	m.hub.AddUser(userID, conn)
	defer func() {
		m.hub.RemoveUser(userID, conn)
		_ = conn.Close()
	}()

	_ = conn.WriteJSON(envelope{
		Type: "ws_hello",
		Data: map[string]string{"user_id": userID, "ts": utcNow()},
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Debug("Websocket closed",
					slog.String("userID", userID),
					slog.String(errLoggerKey, err.Error()))
			}
			return
		}

		var in wsIncoming
		if err := json.Unmarshal(raw, &in); err != nil {
			// Bare text frames are wrapped so the client still gets an ack.
			in = wsIncoming{
				Type: "text",
				Data: json.RawMessage(fmt.Sprintf(`{"text":%q}`, string(raw))),
			}
		}

		switch in.Type {
		case "ping":
			_ = conn.WriteJSON(envelope{Type: "pong", TS: utcNow()})
		case "message":
			// Echo back to the sender first, then fan out to the user's
			// other channels with the echoed marker.
			_ = conn.WriteJSON(envelope{Type: "echo", Data: in.Data})

			var data map[string]any
			if len(in.Data) > 0 {
				if err := json.Unmarshal(in.Data, &data); err != nil {
					m.logger.Debug("Ignoring malformed message data",
						slog.String("userID", userID),
						slog.String(errLoggerKey, err.Error()))
				}
			}
			if data == nil {
				data = map[string]any{}
			}
			data["echoed"] = true
			data["ts"] = utcNow()
			m.broadcastUser(userID, envelope{Type: "message", Data: data})
		default:
			_ = conn.WriteJSON(envelope{Type: "ack", Data: in, TS: utcNow()})
		}
	}
}

// HandleSignal serves a signaling room websocket: every payload is relayed
// verbatim to the other peers in the room, with a ts field defaulted.
func (m *Main) HandleSignal(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	if roomID == "" {
		http.Error(w, "room_id is required", http.StatusBadRequest)
		return
	}

	ws, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("Failed to upgrade websocket", slog.String(errLoggerKey, err.Error()))
		return
	}

	conn := hub.NewWSConn(ws)
	m.hub.AddRoom(roomID, conn)
	defer func() {
		m.hub.RemoveRoom(roomID, conn)
		_ = conn.Close()
	}()

	_ = conn.WriteJSON(map[string]string{
		"type": "signal_hello",
		"room": roomID,
		"ts":   utcNow(),
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Debug("Signaling websocket closed",
					slog.String("roomID", roomID),
					slog.String(errLoggerKey, err.Error()))
			}
			return
		}

		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = map[string]any{"type": "raw", "data": string(raw)}
		}
		if _, ok := payload["ts"]; !ok {
			payload["ts"] = utcNow()
		}

		m.hub.BroadcastRoom(roomID, payload, conn)
	}
}
