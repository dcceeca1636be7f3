package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	floatchat "github.com/floatchat/floatchat"
	"github.com/floatchat/floatchat/internal/hub"
	"github.com/floatchat/floatchat/internal/models"
	"github.com/gorilla/websocket"
	"github.com/tmaxmax/go-sse"
)

// Store defines the interface for conversation persistence. Messages are
// grouped per user and returned in insertion order; Reset clears everything.
type Store interface {
	Messages(ctx context.Context, userID string) ([]models.Message, error)
	AddMessage(ctx context.Context, userID string, message models.Message) (string, error)
	Reset(ctx context.Context) error
}

// Responder produces the assistant reply for a user's conversation.
type Responder interface {
	Reply(ctx context.Context, messages []models.Message) (string, error)
}

// Main handles the core functionality of the dev server, managing the
// server-sent event stream, the websocket hub, HTML templates, and the
// interactions between the Store and the Responder.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	upgrader  websocket.Upgrader

	hub       *hub.Hub
	store     Store
	responder Responder

	greeting     string
	historyLimit int

	logger *slog.Logger
}

const errLoggerKey = "err"

// DefaultHistoryLimit bounds the messages returned by the history endpoint.
const DefaultHistoryLimit = 200

var messagesSSEType = sse.Type("message")

func userTopic(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// NewMain creates a new Main instance with the provided Store and Responder
// implementations. It initializes the SSE server so each session subscribes
// to its own user's topic, and parses the required HTML templates from the
// embedded filesystem. A historyLimit of zero or less falls back to
// DefaultHistoryLimit.
func NewMain(
	store Store,
	responder Responder,
	h *hub.Hub,
	greeting string,
	historyLimit int,
	logger *slog.Logger,
) (*Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		floatchat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return nil, err
	}

	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	return &Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				topics := []string{sse.DefaultTopic}

				// Each session follows its own user's stream.
				userID := s.Req.PathValue("user_id")
				if userID == "" {
					userID = s.Req.URL.Query().Get("user_id")
				}
				if userID != "" {
					topics = append(topics, userTopic(userID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		upgrader: websocket.Upgrader{
			// The dev server accepts widgets embedded on any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		hub:          h,
		store:        store,
		responder:    responder,
		greeting:     greeting,
		historyLimit: historyLimit,
		logger:       logger.With(slog.String("module", "handlers")),
	}, nil
}

// HandleSSE serves the per-user event stream.
func (m *Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown gracefully terminates the SSE server. It broadcasts a close
// message to all connected clients and waits up to 5 seconds for connections
// to terminate. After the timeout, any remaining connections are forcefully
// closed.
func (m *Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("close")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}

// envelope is the wire format shared by the SSE and websocket channels.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	TS   string `json:"ts,omitempty"`
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// broadcastUser fans an event out to the user's websocket connections and
// SSE subscribers.
func (m *Main) broadcastUser(userID string, event envelope) {
	m.hub.BroadcastUser(userID, event)

	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to marshal event",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{Type: messagesSSEType}
	msg.AppendData(string(payload))
	if err := m.sseSrv.Publish(&msg, userTopic(userID)); err != nil {
		m.logger.Error("Failed to publish event",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
	}
}

func (m *Main) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("Failed to encode response", slog.String(errLoggerKey, err.Error()))
	}
}
