package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/floatchat/floatchat/internal/models"
	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAI provides a Responder implementation backed by OpenAI's chat
// completion API. Setting a base URL makes it talk to any OpenAI-compatible
// endpoint, such as OpenRouter.
type OpenAI struct {
	model        string
	systemPrompt string

	client *goopenai.Client

	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI instance with the specified API key, model
// name, and system prompt. A non-empty baseURL overrides the default API
// endpoint.
func NewOpenAI(apiKey, baseURL, model, systemPrompt string, logger *slog.Logger) OpenAI {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return OpenAI{
		model:        model,
		systemPrompt: systemPrompt,
		client:       goopenai.NewClientWithConfig(cfg),
		logger:       logger.With(slog.String("module", "openai")),
	}
}

// Reply sends the conversation to the chat completion API and returns the
// model's answer.
func (o OpenAI) Reply(ctx context.Context, messages []models.Message) (string, error) {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(messages)+1)
	msgs = append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: o.systemPrompt,
	})
	for _, msg := range messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	req := goopenai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
	}

	o.logger.Debug("Request", slog.Int("messages", len(msgs)), slog.String("model", o.model))

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error sending request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices found")
	}

	return resp.Choices[0].Message.Content, nil
}
