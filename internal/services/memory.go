package services

import (
	"context"
	"sync"

	"github.com/floatchat/floatchat/internal/models"
)

// Memory implements the Store interface with an in-process map. This is the
// default backend: conversations live for the lifetime of the server, which
// matches what the widget expects from its dev server.
type Memory struct {
	mu            sync.Mutex
	conversations map[string][]models.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[string][]models.Message),
	}
}

// Messages returns a copy of the user's history in insertion order.
func (m *Memory) Messages(_ context.Context, userID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Message(nil), m.conversations[userID]...), nil
}

// AddMessage appends a message to the user's history and returns its ID.
func (m *Memory) AddMessage(_ context.Context, userID string, message models.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[userID] = append(m.conversations[userID], message)
	return message.ID, nil
}

// Reset drops every stored conversation.
func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = make(map[string][]models.Message)
	return nil
}
