package channel

import (
	"encoding/json"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := decodeMessage([]byte(`{"type":"notification","payload":{"id":"n-1"},"timestamp":1700000000000}`))
	if err != nil {
		t.Fatalf("decodeMessage failed: %v", err)
	}
	if msg.Type != "notification" {
		t.Errorf("Type = %q, want %q", msg.Type, "notification")
	}
	if msg.Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want 1700000000000", msg.Timestamp)
	}
}

func TestDecodeMessage_MalformedFrame(t *testing.T) {
	if _, err := decodeMessage([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := decodeMessage([]byte(`{"payload":{}}`)); err == nil {
		t.Error("expected error for missing type")
	}
}

func TestMessage_DedupKey(t *testing.T) {
	msg := Message{Type: TypeNotification, Payload: map[string]any{"id": "n-1"}}
	key, ok := msg.dedupKey()
	if !ok {
		t.Fatal("expected dedup key for notification with id")
	}
	if key != "notification:n-1" {
		t.Errorf("key = %q, want %q", key, "notification:n-1")
	}

	// Only the reserved notification class is gated.
	if _, ok := (Message{Type: TypeContentUpdate, Payload: map[string]any{"id": "c-1"}}).dedupKey(); ok {
		t.Error("content_update must not be deduplicated")
	}
	if _, ok := (Message{Type: TypeNotification}).dedupKey(); ok {
		t.Error("notification without payload must not be deduplicated")
	}
	if _, ok := (Message{Type: TypeNotification, Payload: map[string]any{"id": ""}}).dedupKey(); ok {
		t.Error("empty identifier must not be deduplicated")
	}
}

func TestMessage_MarshalShape(t *testing.T) {
	data, err := json.Marshal(Message{Type: "x", Timestamp: 42})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"type":"x","timestamp":42}` {
		t.Errorf("wire frame = %s, want {\"type\":\"x\",\"timestamp\":42}", data)
	}
}
