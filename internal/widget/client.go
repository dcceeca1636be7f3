package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/floatchat/floatchat/internal/models"
)

// DefaultEchoEndpoint is the public echo service submissions go to in
// test-fetch mode.
const DefaultEchoEndpoint = "https://postman-echo.com/post"

// DefaultGreeting seeds the conversation when no greeting is configured.
const DefaultGreeting = "Hi! How can I help you today?"

const messagePath = "/api/message"

var (
	// ErrEmptyMessage is returned when the submitted text is empty after
	// trimming. Nothing is appended and no request is issued.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrPending is returned when a request is already in flight. The
	// submission is dropped, never queued.
	ErrPending = errors.New("request already in flight")
)

// Options configures a widget Client.
type Options struct {
	// BaseURL is the backend base URL used when TestFetch is false. The
	// message path is appended to it.
	BaseURL string
	// TestFetch routes submissions to the echo endpoint instead of the
	// backend.
	TestFetch bool
	// EchoEndpoint overrides DefaultEchoEndpoint in test-fetch mode.
	EchoEndpoint string
	// UserID identifies this session to the backend.
	UserID string
	// Greeting seeds the conversation; DefaultGreeting when empty.
	Greeting string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a single chat widget session: an append-only conversation plus a
// send pipeline that allows one request in flight at a time.
type Client struct {
	opts Options

	conv    *Conversation
	pending atomic.Bool

	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a widget session with its conversation seeded by the
// configured greeting.
func NewClient(opts Options) *Client {
	if opts.Greeting == "" {
		opts.Greeting = DefaultGreeting
	}
	if opts.EchoEndpoint == "" {
		opts.EchoEndpoint = DefaultEchoEndpoint
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		opts:       opts,
		conv:       NewConversation(opts.Greeting),
		httpClient: httpClient,
		logger:     logger.With(slog.String("module", "widget")),
	}
}

// Messages returns a copy of the session history in insertion order.
func (c *Client) Messages() []models.Message {
	return c.conv.Messages()
}

// Pending reports whether a request is currently in flight.
func (c *Client) Pending() bool {
	return c.pending.Load()
}

type backendRequest struct {
	UserID   string           `json:"user_id"`
	Text     string           `json:"text"`
	Messages []models.Message `json:"messages"`
}

type echoRequest struct {
	Message string `json:"message"`
}

// Send submits text through the pipeline: the trimmed text is appended as a
// user message, one POST is issued, and exactly one assistant message is
// appended and returned - the extracted reply on success, or a human-readable
// error notice on transport failure or a non-2xx status. Failures are never
// surfaced as errors; the only error returns are the ErrEmptyMessage and
// ErrPending gates, which leave the conversation untouched.
func (c *Client) Send(ctx context.Context, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}

	if !c.pending.CompareAndSwap(false, true) {
		return models.Message{}, ErrPending
	}
	defer c.pending.Store(false)

	c.conv.Append(models.RoleUser, text)

	reply, err := c.post(ctx, text)
	if err != nil {
		c.logger.Error("Send failed", slog.String("err", err.Error()))
		return c.conv.Append(models.RoleAssistant, "Error: "+err.Error()), nil
	}

	return c.conv.Append(models.RoleAssistant, reply), nil
}

func (c *Client) post(ctx context.Context, text string) (string, error) {
	var (
		endpoint string
		body     any
	)
	if c.opts.TestFetch {
		endpoint = c.opts.EchoEndpoint
		body = echoRequest{Message: text}
	} else {
		endpoint = strings.TrimRight(c.opts.BaseURL, "/") + messagePath
		body = backendRequest{
			UserID:   c.opts.UserID,
			Text:     text,
			Messages: c.conv.Messages(),
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	return extractReply(raw), nil
}
