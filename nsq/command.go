package nsq

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// Command is an outbound NSQ command: an ASCII header line (name plus
// space-separated parameters) optionally followed by a length-prefixed
// body. Mpub pre-renders its body (count + per-message length prefixes);
// everything else carries its body as-is.
type Command struct {
	Name   []byte
	Params [][]byte
	Body   []byte
}

// String renders the header line, for logging.
func (c *Command) String() string {
	if len(c.Params) == 0 {
		return string(c.Name)
	}
	return fmt.Sprintf("%s %s", c.Name, bytes.Join(c.Params, []byte(" ")))
}

// WriteTo writes the command to w in wire format: header line terminated
// by '\n', then (if Body is non-nil) a big-endian u32 length followed by
// the body bytes.
func (c *Command) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := w.Write(c.Name)
	total += int64(n)
	if err != nil {
		return total, errors.Wrap(err, "write command name")
	}

	for _, param := range c.Params {
		n, err = w.Write(spaceBytes)
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "write command separator")
		}
		n, err = w.Write(param)
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "write command param")
		}
	}

	n, err = w.Write(newlineBytes)
	total += int64(n)
	if err != nil {
		return total, errors.Wrap(err, "write command newline")
	}

	if c.Body == nil {
		return total, nil
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c.Body)))
	n, err = w.Write(lenBuf[:])
	total += int64(n)
	if err != nil {
		return total, errors.Wrap(err, "write command body length")
	}

	n, err = w.Write(c.Body)
	total += int64(n)
	if err != nil {
		return total, errors.Wrap(err, "write command body")
	}

	return total, nil
}

var (
	spaceBytes   = []byte(" ")
	newlineBytes = []byte("\n")
)

// Identify builds the IDENTIFY command carrying the pre-rendered IDENTIFY
// JSON document (see Config.identifyJSON).
func Identify(js []byte) *Command {
	return &Command{Name: []byte("IDENTIFY"), Body: js}
}

// Sub subscribes the connection to topic/channel. Not exercised by the
// Producer; provided for completeness and for callers layering a consumer
// on top of Connection.
func Sub(topic, channel string) *Command {
	return &Command{
		Name:   []byte("SUB"),
		Params: [][]byte{[]byte(topic), []byte(channel)},
	}
}

// Pub publishes a single message body to topic.
func Pub(topic string, body []byte) *Command {
	return &Command{
		Name:   []byte("PUB"),
		Params: [][]byte{[]byte(topic)},
		Body:   body,
	}
}

// Mpub atomically publishes multiple message bodies to topic. The body is
// pre-rendered as a u32 count, then per message a u32 length and the
// bytes; WriteTo's u32 length prefix supplies the total body length.
func Mpub(topic string, bodies [][]byte) (*Command, error) {
	innerLen := 4 // count
	for _, b := range bodies {
		innerLen += 4 + len(b)
	}

	buf := bytes.NewBuffer(make([]byte, 0, innerLen))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(bodies))); err != nil {
		return nil, errors.Wrap(err, "encode mpub count")
	}
	for _, b := range bodies {
		if err := binary.Write(buf, binary.BigEndian, uint32(len(b))); err != nil {
			return nil, errors.Wrap(err, "encode mpub message length")
		}
		if _, err := buf.Write(b); err != nil {
			return nil, errors.Wrap(err, "encode mpub message body")
		}
	}

	return &Command{
		Name:   []byte("MPUB"),
		Params: [][]byte{[]byte(topic)},
		Body:   buf.Bytes(),
	}, nil
}

// Dpub publishes a single message, deferring delivery by deferMs
// milliseconds.
func Dpub(topic string, deferMs int64, body []byte) *Command {
	return &Command{
		Name:   []byte("DPUB"),
		Params: [][]byte{[]byte(topic), []byte(strconv.FormatInt(deferMs, 10))},
		Body:   body,
	}
}

// Rdy tells nsqd how many messages this connection is ready to receive.
func Rdy(count int) *Command {
	return &Command{
		Name:   []byte("RDY"),
		Params: [][]byte{[]byte(strconv.Itoa(count))},
	}
}

// Fin marks a message as successfully processed.
func Fin(id MessageID) *Command {
	return &Command{
		Name:   []byte("FIN"),
		Params: [][]byte{[]byte(id.String())},
	}
}

// Req requeues a message, asking nsqd to redeliver it after timeoutMs.
func Req(id MessageID, timeoutMs int64) *Command {
	return &Command{
		Name:   []byte("REQ"),
		Params: [][]byte{[]byte(id.String()), []byte(strconv.FormatInt(timeoutMs, 10))},
	}
}

// Touch resets a message's in-flight timeout.
func Touch(id MessageID) *Command {
	return &Command{
		Name:   []byte("TOUCH"),
		Params: [][]byte{[]byte(id.String())},
	}
}

// Cls begins a clean shutdown of the connection.
func Cls() *Command {
	return &Command{Name: []byte("CLS")}
}

// Nop is a no-op, used both by callers as a keep-alive and by the
// heartbeat multiplexer to answer `_heartbeat_`.
func Nop() *Command {
	return &Command{Name: []byte("NOP")}
}

// Auth sends the opaque secret negotiated out-of-band with the operator
// of the nsqd cluster.
func Auth(secret string) *Command {
	return &Command{Name: []byte("AUTH"), Body: []byte(secret)}
}
