package channel

import (
	"encoding/json"
	"errors"
)

// Errors
var (
	ErrTransportClosed  = errors.New("transport closed")
	ErrHeartbeatTimeout = errors.New("heartbeat timeout")
	ErrEmptyType        = errors.New("message has no type")
)

// Reserved control and application message types. Control types never reach
// subscribers; application types are shared spellings for collaborators.
const (
	TypePing          = "ping"
	TypePong          = "pong"
	TypeNotification  = "notification"
	TypeContentUpdate = "content_update"
)

// Message is a single wire frame: a JSON text frame decoding to
// {type, payload?, timestamp}. Immutable once constructed.
type Message struct {
	Type      string `json:"type"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// decodeMessage parses an inbound frame. A frame that is not valid JSON or
// has no type is a protocol error; the caller drops it.
func decodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, ErrEmptyType
	}
	return msg, nil
}

// dedupKey returns the deduplication key for messages of the reserved
// notification class that carry a stable identifier. Other messages are
// never deduplicated.
func (m Message) dedupKey() (string, bool) {
	if m.Type != TypeNotification {
		return "", false
	}
	payload, ok := m.Payload.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := payload["id"].(string)
	if !ok || id == "" {
		return "", false
	}
	return m.Type + ":" + id, true
}
