package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/floatchat/floatchat/internal/models"
	"github.com/google/uuid"
)

type messageRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Text   string `json:"text"`

	// Messages carries the widget's own history; the server keeps the
	// authoritative copy and ignores it.
	Messages []models.Message `json:"messages,omitempty"`
}

// Reply is emitted even when empty so widget clients never fall back to
// scanning the rest of the body.
type messageResponse struct {
	OK      bool           `json:"ok"`
	Message models.Message `json:"message"`
	Reply   string         `json:"reply"`
}

// HandleMessage accepts a posted chat message, stores it, and fans it out to
// the user's realtime channels. For user-role messages it also obtains the
// assistant reply and returns it in the response body, so the widget's single
// request/response cycle completes in one round trip.
func (m *Main) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	text := strings.TrimSpace(req.Text)
	if userID == "" || text == "" {
		m.logger.Error("Rejecting message", slog.String("reason", "user_id and text are required"))
		http.Error(w, "user_id and text are required", http.StatusBadRequest)
		return
	}

	role := models.Role(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleUser
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
	storedID, err := m.store.AddMessage(r.Context(), userID, msg)
	if err != nil {
		m.logger.Error("Failed to add message",
			slog.String("message", fmt.Sprintf("%+v", msg)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	msg.ID = storedID
	m.broadcastUser(userID, envelope{Type: "message", Data: msg})

	resp := messageResponse{OK: true, Message: msg}

	if role == models.RoleUser {
		reply, err := m.respond(r.Context(), userID)
		if err != nil {
			m.logger.Error("Responder failed",
				slog.String("userID", userID),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		resp.Reply = reply
	}

	m.writeJSON(w, http.StatusOK, resp)
}

// respond obtains the assistant reply for the user's conversation, stores it,
// and fans it out.
func (m *Main) respond(ctx context.Context, userID string) (string, error) {
	messages, err := m.store.Messages(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	reply, err := m.responder.Reply(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}

	am := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	storedID, err := m.store.AddMessage(ctx, userID, am)
	if err != nil {
		return "", fmt.Errorf("failed to add assistant message: %w", err)
	}
	am.ID = storedID
	m.broadcastUser(userID, envelope{Type: "message", Data: am})

	return reply, nil
}

type historyResponse struct {
	UserID   string           `json:"user_id"`
	Messages []models.Message `json:"messages"`
}

// HandleHistory returns the trailing portion of the user's stored history,
// bounded by the configured history limit.
func (m *Main) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.PathValue("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	messages, err := m.store.Messages(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to get messages",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if len(messages) > m.historyLimit {
		messages = messages[len(messages)-m.historyLimit:]
	}
	if messages == nil {
		messages = []models.Message{}
	}

	m.writeJSON(w, http.StatusOK, historyResponse{UserID: userID, Messages: messages})
}

type echoRequest struct {
	Message string `json:"message"`
	Text    string `json:"text"`
}

// HandleEcho mirrors the posted text back as a reply. The widget's
// test-fetch mode can point here instead of the public echo service.
func (m *Main) HandleEcho(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req echoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	reply := req.Message
	if reply == "" {
		reply = req.Text
	}

	m.writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// HandleReset clears every stored conversation.
func (m *Main) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := m.store.Reset(r.Context()); err != nil {
		m.logger.Error("Failed to reset store", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reset_at": utcNow()})
}
