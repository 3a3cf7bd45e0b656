package nsq

import (
	"bytes"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	id := MessageID{}
	copy(id[:], "0123456789abcdef")
	msg := &Message{
		ID:        id,
		Body:      []byte("payload bytes"),
		Timestamp: 1234567890,
		Attempts:  3,
	}

	var buf bytes.Buffer
	if err := msg.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	decoded, err := decodeMessage(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeMessage: %v", err)
	}

	if decoded.ID != msg.ID {
		t.Errorf("ID = %v, want %v", decoded.ID, msg.ID)
	}
	if decoded.Timestamp != msg.Timestamp {
		t.Errorf("Timestamp = %d, want %d", decoded.Timestamp, msg.Timestamp)
	}
	if decoded.Attempts != msg.Attempts {
		t.Errorf("Attempts = %d, want %d", decoded.Attempts, msg.Attempts)
	}
	if !bytes.Equal(decoded.Body, msg.Body) {
		t.Errorf("Body = %q, want %q", decoded.Body, msg.Body)
	}
}

func TestMessageIDString(t *testing.T) {
	var id MessageID
	copy(id[:], "abcdef0123456789")
	if got, want := id.String(), "abcdef0123456789"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestNewMessageStampsTimestamp(t *testing.T) {
	msg := NewMessage(MessageID{}, []byte("x"))
	if msg.Timestamp == 0 {
		t.Fatalf("expected NewMessage to stamp a non-zero timestamp")
	}
}
