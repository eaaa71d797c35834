package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/habibullah-1101/habib-portfolio/internal/config"
	"github.com/habibullah-1101/habib-portfolio/internal/model"
)

// ErrMissingAPIKey means the server was deployed without a credential; no
// request can succeed until an operator fixes the configuration.
var ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY credential")

// Error carries a completion-API failure so the handler can relay the
// upstream status and body to the caller.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// Client speaks the chat-completions protocol of an OpenAI-compatible API,
// always requesting a streamed response.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	temperature  float32
	systemPrompt string
	httpClient   *http.Client
}

func NewClient(cfg config.OpenAIConfig, systemPrompt string) *Client {
	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		systemPrompt: systemPrompt,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// HasCredential reports whether an API key is configured at all.
func (c *Client) HasCredential() bool {
	return c.apiKey != ""
}

// StreamCompletion forwards the conversation, with the persona system prompt
// prepended, and returns the raw SSE body for the relay to decode. The caller
// owns the returned body.
func (c *Client) StreamCompletion(ctx context.Context, messages []model.Message) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	chat := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chat = append(chat, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.systemPrompt,
	})
	for _, m := range messages {
		chat = append(chat, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(openai.ChatCompletionRequest{
		Model:       c.model,
		Stream:      true,
		Temperature: c.temperature,
		Messages:    chat,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		resp.Body.Close()

		status := resp.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		text := strings.TrimSpace(string(errText))
		if text == "" {
			text = "Upstream request failed"
		}
		return nil, &Error{Status: status, Body: text}
	}

	return resp.Body, nil
}
