package widget_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/floatchat/floatchat/internal/models"
	"github.com/floatchat/floatchat/internal/widget"
)

func newBackendClient(t *testing.T, handler http.HandlerFunc) (*widget.Client, *atomic.Int32) {
	t.Helper()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return widget.NewClient(widget.Options{
		BaseURL: srv.URL,
		UserID:  "alice",
	}), &requests
}

func TestNewClientSeedsGreeting(t *testing.T) {
	c := widget.NewClient(widget.Options{Greeting: "Welcome!"})

	msgs := c.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Messages() len = %d, want 1", len(msgs))
	}
	if msgs[0].Role != models.RoleAssistant {
		t.Errorf("greeting role = %v, want %v", msgs[0].Role, models.RoleAssistant)
	}
	if msgs[0].Content != "Welcome!" {
		t.Errorf("greeting content = %q, want %q", msgs[0].Content, "Welcome!")
	}
}

func TestSendEmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "spaces", input: "   "},
		{name: "whitespace mix", input: " \t\n "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, requests := newBackendClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"reply":"nope"}`))
			})

			if _, err := c.Send(context.Background(), tt.input); err != widget.ErrEmptyMessage {
				t.Errorf("Send() error = %v, want ErrEmptyMessage", err)
			}
			if got := len(c.Messages()); got != 1 {
				t.Errorf("message count = %d, want 1 (greeting only)", got)
			}
			if got := requests.Load(); got != 0 {
				t.Errorf("requests issued = %d, want 0", got)
			}
		})
	}
}

func TestSendSuccess(t *testing.T) {
	c, requests := newBackendClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"reply":"X"}`))
	})

	msg, err := c.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.Role != models.RoleAssistant {
		t.Errorf("reply role = %v, want %v", msg.Role, models.RoleAssistant)
	}
	if msg.Content != "X" {
		t.Errorf("reply content = %q, want %q", msg.Content, "X")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("requests issued = %d, want 1", got)
	}
	if c.Pending() {
		t.Error("Pending() = true after completed cycle")
	}

	msgs := c.Messages()
	wantRoles := []models.Role{models.RoleAssistant, models.RoleUser, models.RoleAssistant}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("message count = %d, want %d", len(msgs), len(wantRoles))
	}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("msgs[%d].Role = %v, want %v", i, msgs[i].Role, role)
		}
	}
}

func TestSendBackendRequestBody(t *testing.T) {
	var got struct {
		UserID   string           `json:"user_id"`
		Text     string           `json:"text"`
		Messages []models.Message `json:"messages"`
	}
	var contentType string

	c, _ := newBackendClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if r.URL.Path != "/api/message" {
			t.Errorf("request path = %q, want /api/message", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Write([]byte(`{"reply":"ok"}`))
	})

	if _, err := c.Send(context.Background(), "  hi there  "); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}
	if got.UserID != "alice" {
		t.Errorf("user_id = %q, want alice", got.UserID)
	}
	if got.Text != "hi there" {
		t.Errorf("text = %q, want trimmed %q", got.Text, "hi there")
	}
	// Full history: greeting plus the user message just appended.
	if len(got.Messages) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.Messages))
	}
	if got.Messages[1].Content != "hi there" {
		t.Errorf("history tail = %q, want %q", got.Messages[1].Content, "hi there")
	}
}

func TestSendErrorStatus(t *testing.T) {
	c, _ := newBackendClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	msg, err := c.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send() error = %v, want nil (failure becomes a message)", err)
	}
	if msg.Role != models.RoleAssistant {
		t.Errorf("error message role = %v, want %v", msg.Role, models.RoleAssistant)
	}
	if !strings.HasPrefix(msg.Content, "Error:") {
		t.Errorf("error message content = %q, want Error: prefix", msg.Content)
	}
	if c.Pending() {
		t.Error("Pending() = true after failed cycle")
	}
	if got := len(c.Messages()); got != 3 {
		t.Errorf("message count = %d, want 3", got)
	}
}

func TestSendTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	c := widget.NewClient(widget.Options{BaseURL: srv.URL, UserID: "alice"})

	msg, err := c.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send() error = %v, want nil", err)
	}
	if !strings.HasPrefix(msg.Content, "Error:") {
		t.Errorf("error message content = %q, want Error: prefix", msg.Content)
	}
	if c.Pending() {
		t.Error("Pending() = true after transport error")
	}
}

func TestSendWhilePending(t *testing.T) {
	release := make(chan struct{})
	c, requests := newBackendClient(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Write([]byte(`{"reply":"slow"}`))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := c.Send(context.Background(), "first"); err != nil {
			t.Errorf("Send() error = %v", err)
		}
	}()

	// Wait until the first request is actually in flight.
	deadline := time.After(2 * time.Second)
	for !c.Pending() {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for pending flag")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := c.Send(context.Background(), "second"); err != widget.ErrPending {
		t.Errorf("Send() while pending error = %v, want ErrPending", err)
	}

	close(release)
	<-done

	if got := requests.Load(); got != 1 {
		t.Errorf("requests issued = %d, want 1", got)
	}
	// greeting + first user message + its reply; the second submission left no trace.
	if got := len(c.Messages()); got != 3 {
		t.Errorf("message count = %d, want 3", got)
	}

	// A completed cycle frees the pipeline for the next submission.
	if _, err := c.Send(context.Background(), "third"); err != nil {
		t.Errorf("Send() after completed cycle error = %v", err)
	}
}

func TestSendEchoMode(t *testing.T) {
	var body struct {
		Message string `json:"message"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode echo body: %v", err)
		}
		// Public echo services mirror the request under a "json" key.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"json": map[string]string{"message": body.Message},
		})
	}))
	defer srv.Close()

	c := widget.NewClient(widget.Options{
		TestFetch:    true,
		EchoEndpoint: srv.URL,
	})

	msg, err := c.Send(context.Background(), "ping")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if body.Message != "ping" {
		t.Errorf("echo payload = %q, want %q", body.Message, "ping")
	}
	if msg.Content != "ping" {
		t.Errorf("reply content = %q, want %q", msg.Content, "ping")
	}
}
