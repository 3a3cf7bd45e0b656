package nsq

import (
	"io"

	"github.com/pkg/errors"
)

// Producer is a high-level PUB/MPUB/DPUB request-reply wrapper around a
// single Connection.
type Producer struct {
	conn *Connection
}

// NewProducer dials addr and negotiates a Connection, wrapping it in a
// Producer.
func NewProducer(addr string, cfg *Config) (*Producer, error) {
	conn, err := Connect(addr, cfg)
	if err != nil {
		return nil, err
	}
	return &Producer{conn: conn}, nil
}

// FromConnection wraps an already-connected Connection in a Producer.
func FromConnection(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// Publish sends a single message body to topic and waits for nsqd's
// acknowledgement.
func (p *Producer) Publish(topic string, body []byte) error {
	if err := p.conn.Send(Pub(topic, body)); err != nil {
		return err
	}
	return p.awaitOk()
}

// MultiPublish atomically publishes a slice of message bodies to topic.
func (p *Producer) MultiPublish(topic string, bodies [][]byte) error {
	cmd, err := Mpub(topic, bodies)
	if err != nil {
		return err
	}
	if err := p.conn.Send(cmd); err != nil {
		return err
	}
	return p.awaitOk()
}

// DeferredPublish publishes a single message to topic, asking nsqd to
// delay delivery by deferMs milliseconds.
func (p *Producer) DeferredPublish(topic string, deferMs int64, body []byte) error {
	if err := p.conn.Send(Dpub(topic, deferMs, body)); err != nil {
		return err
	}
	return p.awaitOk()
}

// Ping sends a Nop without waiting for a reply; it can be used to verify
// a Producer's connection is alive without the side effects of a publish.
func (p *Producer) Ping() error {
	return p.conn.Send(Nop())
}

// Close closes the underlying connection.
func (p *Producer) Close() error {
	return p.conn.Close()
}

func (p *Producer) awaitOk() error {
	resp, err := p.conn.Receive()
	if err != nil {
		return err
	}
	switch resp.Kind {
	case RespOk:
		return nil
	case RespErr:
		return resp.Err
	default:
		return &ProtocolError{Message: "unexpected message frame in reply to publish"}
	}
}

// IntoSink splits the Producer's Connection and returns a SinkProducer
// bound to topic plus a channel that is closed when the paired reader
// task exits. The reader task drains the Stream half in the background;
// SinkProducer.Ready surfaces whatever it observed on the next call after
// the fact, decoupling submission from acknowledgement.
func (p *Producer) IntoSink(topic string) (*SinkProducer, <-chan struct{}) {
	sink, stream := p.conn.Split()

	errCh := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			resp, err := stream.Recv()
			if err != nil {
				if err != io.EOF {
					errCh <- err
				}
				close(errCh)
				return
			}
			switch resp.Kind {
			case RespOk:
				continue
			case RespErr:
				errCh <- resp.Err
				close(errCh)
				return
			case RespMsg:
				errCh <- &ProtocolError{Message: "received a Message on a publish-only connection"}
				close(errCh)
				return
			}
		}
	}()

	return &SinkProducer{
		topic: topic,
		sink:  sink,
		errCh: errCh,
	}, done
}

// SinkProducer decouples publish submission from acknowledgement: Send
// forwards a Pub command to the sink half of a split Connection, while a
// background reader task drains responses and reports the first error
// (or stream EOF) over a single-use channel.
type SinkProducer struct {
	topic string
	sink  *Sink
	errCh chan error
	err   error
}

// Ready polls, without blocking, whether the background reader has
// reported an error or ended the stream. Once an error is observed it is
// cached and returned on every subsequent call.
func (sp *SinkProducer) Ready() error {
	if sp.err != nil {
		return sp.err
	}
	select {
	case err, ok := <-sp.errCh:
		if !ok {
			sp.err = io.EOF
		} else {
			sp.err = err
		}
		return sp.err
	default:
		return nil
	}
}

// Send publishes body to the sink's topic. It first checks Ready so a
// reader-observed error surfaces on the next send rather than being
// silently dropped on the wire.
func (sp *SinkProducer) Send(body []byte) error {
	if err := sp.Ready(); err != nil {
		return err
	}
	if err := sp.sink.Send(Pub(sp.topic, body)); err != nil {
		return errors.Wrap(err, "sink send")
	}
	return nil
}

// Close closes the underlying connection.
func (sp *SinkProducer) Close() error {
	return sp.sink.Close()
}
