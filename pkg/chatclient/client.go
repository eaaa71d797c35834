// Package chatclient implements the assistant widget's conversation state
// machine: bounded history, a single in-flight request, and incremental
// append of the streamed reply.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/qmuntal/stateless"

	"github.com/habibullah-1101/habib-portfolio/internal/model"
)

// Widget lifecycle states.
var (
	StateIdle     stateless.State = "Idle"
	StateAwaiting stateless.State = "AwaitingResponse"
	StateError    stateless.State = "Error"
)

var (
	triggerSubmit   stateless.Trigger = "Submit"
	triggerComplete stateless.Trigger = "Complete"
	triggerFail     stateless.Trigger = "Fail"
	triggerRecover  stateless.Trigger = "Recover"
)

// DefaultGreeting seeds a fresh conversation.
const DefaultGreeting = "Hi! I'm here to help with Habib's portfolio and services."

type Client struct {
	endpoint     string
	sessionID    string
	sessionIDSet bool
	greeting     string
	maxHistory   int
	httpClient   *http.Client

	mu       sync.Mutex
	fsm      *stateless.StateMachine
	messages []model.Message
}

type Option func(*Client)

// WithHTTPClient replaces the transport used for chat requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionID overrides the persisted session identity.
func WithSessionID(id string) Option {
	return func(c *Client) {
		c.sessionID = id
		c.sessionIDSet = true
	}
}

// WithMaxHistory overrides the visible-history bound.
func WithMaxHistory(n int) Option {
	return func(c *Client) { c.maxHistory = n }
}

// WithGreeting replaces the initial assistant message; empty disables it.
func WithGreeting(greeting string) Option {
	return func(c *Client) { c.greeting = greeting }
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		greeting:   DefaultGreeting,
		maxHistory: model.DefaultMaxHistoryMessages,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.sessionIDSet {
		c.sessionID = GetOrCreateSessionID()
	}

	fsm := stateless.NewStateMachine(StateIdle)
	fsm.Configure(StateIdle).Permit(triggerSubmit, StateAwaiting)
	fsm.Configure(StateAwaiting).
		Permit(triggerComplete, StateIdle).
		Permit(triggerFail, StateError)
	fsm.Configure(StateError).Permit(triggerRecover, StateIdle)
	c.fsm = fsm

	c.messages = c.initialMessages()

	return c
}

func (c *Client) initialMessages() []model.Message {
	if c.greeting == "" {
		return nil
	}
	return []model.Message{{Role: model.RoleAssistant, Content: c.greeting}}
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// State returns the current widget state.
func (c *Client) State() stateless.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsm.MustState()
}

// Messages returns a copy of the visible conversation.
func (c *Client) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset discards the conversation and returns to the greeting. No-op while a
// request is in flight.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fsm.MustState() != StateIdle {
		return
	}
	c.messages = c.initialMessages()
}

// CanSend reports whether Submit would accept text right now.
func (c *Client) CanSend(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(text) != "" && c.sessionID != "" && c.fsm.MustState() == StateIdle
}

// Submit sends one user message and streams the assistant reply into the
// conversation, invoking onChunk (if non-nil) for every appended fragment.
// It blocks until the reply finishes. Submissions are silently dropped while
// a request is in flight, when text trims to nothing, or without a session
// id; they are never queued. The returned error is also recorded in the
// conversation as an assistant apology, so the caller may ignore it.
func (c *Client) Submit(ctx context.Context, text string, onChunk func(chunk string)) error {
	userText := strings.TrimSpace(text)

	c.mu.Lock()
	if userText == "" || c.sessionID == "" || c.fsm.MustState() != StateIdle {
		c.mu.Unlock()
		return nil
	}

	history := boundHistory(append(c.copyMessagesLocked(), model.Message{
		Role:    model.RoleUser,
		Content: userText,
	}), c.maxHistory)
	c.messages = boundHistory(append(history, model.Message{Role: model.RoleAssistant}), c.maxHistory)

	_ = c.fsm.Fire(triggerSubmit)
	c.mu.Unlock()

	err := c.streamReply(ctx, history, onChunk)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.recordFailureLocked(err)
		_ = c.fsm.Fire(triggerFail)
		_ = c.fsm.Fire(triggerRecover)
		return err
	}
	_ = c.fsm.Fire(triggerComplete)
	return nil
}

func (c *Client) streamReply(ctx context.Context, history []model.Message, onChunk func(string)) error {
	body, err := json.Marshal(model.ChatRequest{Messages: history, SessionID: c.sessionID})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = "unable to fetch assistant response"
		}
		return errors.New(text)
	}

	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			c.appendChunk(chunk)
			if onChunk != nil {
				onChunk(chunk)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// appendChunk extends the trailing assistant message, or starts a new one if
// the tail isn't an assistant message.
func (c *Client) appendChunk(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.messages); n > 0 && c.messages[n-1].Role == model.RoleAssistant {
		c.messages[n-1].Content += chunk
	} else {
		c.messages = append(c.messages, model.Message{Role: model.RoleAssistant, Content: chunk})
	}
	c.messages = boundHistory(c.messages, c.maxHistory)
}

func (c *Client) recordFailureLocked(cause error) {
	content := fmt.Sprintf("Sorry, I could not respond: %v", cause)

	if n := len(c.messages); n > 0 && c.messages[n-1].Role == model.RoleAssistant && c.messages[n-1].Content == "" {
		c.messages[n-1].Content = content
		return
	}
	c.messages = boundHistory(append(c.messages, model.Message{
		Role:    model.RoleAssistant,
		Content: content,
	}), c.maxHistory)
}

func (c *Client) copyMessagesLocked() []model.Message {
	out := make([]model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func boundHistory(messages []model.Message, max int) []model.Message {
	if max > 0 && len(messages) > max {
		return messages[len(messages)-max:]
	}
	return messages
}
