package nsq

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Message is the payload of a FrameTypeMessage frame: a server-assigned
// id, the number of delivery attempts so far, the timestamp (nanoseconds
// since epoch) nsqd recorded it at, and the opaque body.
type Message struct {
	ID        MessageID
	Body      []byte
	Timestamp int64
	Attempts  uint16
}

// NewMessage builds a Message with the current time as its timestamp;
// it is primarily useful for tests that drive a Producer against a mock
// nsqd and need to hand back a message-shaped frame.
func NewMessage(id MessageID, body []byte) *Message {
	return &Message{
		ID:        id,
		Body:      body,
		Timestamp: time.Now().UnixNano(),
	}
}

// Write serializes the message body (minus the frame header/type already
// consumed by the caller) in the wire format: u64 timestamp, u16 attempts,
// 16-byte id, then the raw body.
func (m *Message) Write(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, m.Timestamp); err != nil {
		return errors.Wrap(err, "write message timestamp")
	}
	if err := binary.Write(w, binary.BigEndian, m.Attempts); err != nil {
		return errors.Wrap(err, "write message attempts")
	}
	if _, err := w.Write(m.ID[:]); err != nil {
		return errors.Wrap(err, "write message id")
	}
	if _, err := w.Write(m.Body); err != nil {
		return errors.Wrap(err, "write message body")
	}
	return nil
}

// decodeMessage parses the frame body of a FrameTypeMessage frame.
func decodeMessage(data []byte) (*Message, error) {
	buf := bytes.NewReader(data)

	var msg Message
	if err := binary.Read(buf, binary.BigEndian, &msg.Timestamp); err != nil {
		return nil, errors.Wrap(err, "decode message timestamp")
	}
	if err := binary.Read(buf, binary.BigEndian, &msg.Attempts); err != nil {
		return nil, errors.Wrap(err, "decode message attempts")
	}
	if _, err := io.ReadFull(buf, msg.ID[:]); err != nil {
		return nil, errors.Wrap(err, "decode message id")
	}

	body := make([]byte, buf.Len())
	if _, err := io.ReadFull(buf, body); err != nil {
		return nil, errors.Wrap(err, "decode message body")
	}
	msg.Body = body

	return &msg, nil
}
