package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// ClientConfig for the chat-completions client.
type ClientConfig struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

// Client talks to an OpenAI-compatible chat/completions endpoint with tool
// calling. No SDK; the request body is plain JSON so the caller controls the
// URL and the wire shape.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

func (c *Client) Model() string { return c.cfg.Model }

// ChatMessage is one turn in the conversation.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Chat sends the conversation and returns the assistant's next message,
// which either carries tool calls or final content.
func (c *Client) Chat(ctx context.Context, msgs []ChatMessage, tools []map[string]any) (ChatMessage, error) {
	rid := uuid.New().String()
	start := time.Now()

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages":    msgs,
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}

	c.log.Info("llm.chat.request",
		"req_id", rid,
		"model", c.cfg.Model,
		"messages", len(msgs),
		"tools", len(tools),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.chat.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return ChatMessage{}, common.ClassifyTimeout(err)
	}

	var cc struct {
		Choices []struct {
			Message ChatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return ChatMessage{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return ChatMessage{}, fmt.Errorf("no choices in chat response")
	}
	msg := cc.Choices[0].Message

	c.log.Info("llm.chat.response",
		"req_id", rid,
		"tool_calls", len(msg.ToolCalls),
		"content_len", len(msg.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return msg, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.log.Warn("chat response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
