package model

import (
	"encoding/json"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxHistoryMessages bounds the conversation window sent upstream and
// kept by the client widget. Older messages fall off the front.
const DefaultMaxHistoryMessages = 20

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON tolerates elements that do not match the message shape:
// fields of the wrong type decode as empty, leaving the element for
// SanitizeMessages to drop instead of failing the whole request.
func (m *Message) UnmarshalJSON(data []byte) error {
	*m = Message{}

	var raw struct {
		Role    json.RawMessage `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var role, content string
	if json.Unmarshal(raw.Role, &role) == nil {
		m.Role = role
	}
	if json.Unmarshal(raw.Content, &content) == nil {
		m.Content = content
	}
	return nil
}

// Valid reports whether a message may take part in a conversation: a known
// role and content that is non-empty after trimming.
func (m Message) Valid() bool {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return false
	}
	return strings.TrimSpace(m.Content) != ""
}

type ChatRequest struct {
	Messages  []Message `json:"messages"`
	SessionID string    `json:"sessionId"`
}

// SanitizeMessages drops invalid entries instead of rejecting the whole
// request, then keeps only the most recent max messages.
func SanitizeMessages(messages []Message, max int) []Message {
	safe := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Valid() {
			safe = append(safe, m)
		}
	}
	if max > 0 && len(safe) > max {
		safe = safe[len(safe)-max:]
	}
	return safe
}
