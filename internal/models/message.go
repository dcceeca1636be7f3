package models

import "time"

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed into the widget by the visitor.
	RoleUser Role = "user"
	// RoleAssistant represents a reply shown in the widget, including the
	// seed greeting and error notices.
	RoleAssistant Role = "assistant"
	// RoleSystem is reserved for responder prompts and never appears in a
	// conversation.
	RoleSystem Role = "system"
)

// Message represents an individual entry in a conversation. Messages are
// immutable once created; ordering is insertion order.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}
