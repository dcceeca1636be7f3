package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/floatchat/floatchat/internal/models"
	"github.com/ollama/ollama/api"
)

// Ollama provides a Responder implementation for interacting with a local
// Ollama server instance.
type Ollama struct {
	host         string
	model        string
	systemPrompt string

	client *api.Client
}

// NewOllama creates a new Ollama instance with the specified host URL and
// model name. The host parameter should be a valid URL pointing to an Ollama
// server. If the provided host URL is invalid, the function will panic.
func NewOllama(host, model, systemPrompt string) Ollama {
	u, err := url.Parse(host)
	if err != nil {
		panic(err)
	}

	return Ollama{
		host:         host,
		model:        model,
		systemPrompt: systemPrompt,
		client:       api.NewClient(u, &http.Client{}),
	}
}

// Reply sends the conversation to the Ollama model and returns its answer.
func (o Ollama) Reply(ctx context.Context, messages []models.Message) (string, error) {
	msgs := make([]api.Message, 0, len(messages)+1)
	msgs = append(msgs, api.Message{
		Role:    string(models.RoleSystem),
		Content: o.systemPrompt,
	})
	for _, msg := range messages {
		msgs = append(msgs, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	f := false
	req := api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &f,
	}

	var reply string
	if err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		reply = res.Message.Content
		return nil
	}); err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	return reply, nil
}
