package services

import (
	"context"
	"errors"

	"github.com/floatchat/floatchat/internal/models"
)

// Echo is the default responder: the reply mirrors the visitor's latest
// message, which is what the widget's test-fetch mode expects from a backend.
type Echo struct{}

// NewEcho creates an Echo responder.
func NewEcho() Echo {
	return Echo{}
}

// Reply returns the content of the most recent user message.
func (Echo) Reply(_ context.Context, messages []models.Message) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return messages[i].Content, nil
		}
	}
	return "", errors.New("no user message to echo")
}
