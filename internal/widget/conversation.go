package widget

import (
	"sync"
	"time"

	"github.com/floatchat/floatchat/internal/models"
	"github.com/google/uuid"
)

// Conversation holds the ordered message history of one widget session. The
// sequence is append-only and is never reordered or truncated for the
// lifetime of the session; a fresh session starts a new Conversation.
type Conversation struct {
	mu       sync.Mutex
	messages []models.Message
}

// NewConversation creates a conversation seeded with an assistant greeting.
// An empty greeting leaves the conversation empty.
func NewConversation(greeting string) *Conversation {
	c := &Conversation{}
	if greeting != "" {
		c.Append(models.RoleAssistant, greeting)
	}
	return c
}

// Append adds a message with the given role and content and returns it. The
// message is assigned a fresh ID and the current timestamp.
func (c *Conversation) Append(role models.Role, content string) models.Message {
	msg := models.Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()

	return msg
}

// Messages returns a copy of the history in insertion order.
func (c *Conversation) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Message(nil), c.messages...)
}

// Len returns the number of messages in the conversation.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
