package nsq

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Connection is a single negotiated connection to an nsqd, with TLS and
// compression (if any) already stacked underneath the framing codec and
// the heartbeat multiplexer. It exclusively owns the underlying byte
// transport; Split() transfers that ownership to a Sink/Stream pair and
// consumes the Connection handle.
type Connection struct {
	netConn net.Conn
	stream  flushableStream
	br      *bufio.Reader
	addr    string

	heartbeatInterval time.Duration

	writeMu  sync.Mutex
	hbState  heartbeatState
	consumed bool
}

// Connect dials addr, performs the V2 handshake (IDENTIFY, optional TLS
// upgrade, optional compression upgrade, optional AUTH) as described in
// §4.4, and returns a Connection ready for Send/Receive or Split.
func Connect(addr string, cfg *Config) (*Connection, error) {
	netConn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, errors.Wrap(err, "dial nsqd")
	}

	conn, err := handshake(netConn, addr, cfg)
	if err != nil {
		netConn.Close()
		return nil, err
	}
	return conn, nil
}

func handshake(netConn net.Conn, addr string, cfg *Config) (*Connection, error) {
	if _, err := netConn.Write(MagicV2); err != nil {
		return nil, errors.Wrap(err, "write V2 magic")
	}

	idJSON, err := cfg.identifyJSON()
	if err != nil {
		return nil, err
	}
	if _, err := Identify(idJSON).WriteTo(netConn); err != nil {
		return nil, errors.Wrap(err, "write IDENTIFY")
	}

	serverIdentify, err := readIdentifyResponse(netConn, cfg.FeatureNegotiation)
	if err != nil {
		return nil, err
	}

	var stream flushableStream = rawStream{netConn}

	if serverIdentify.TLSV1 {
		if cfg.TLSV1 == nil {
			return nil, &ProtocolError{Message: "server requires TLS but none is configured"}
		}
		tlsConfig, err := buildTLSConfig(cfg.TLSV1)
		if err != nil {
			return nil, err
		}
		tlsConn := tls.Client(netConn, tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			return nil, errors.Wrap(err, "TLS handshake")
		}
		if err := expectFrameOk(tlsConn, "TLS upgrade"); err != nil {
			return nil, err
		}
		stream = rawStream{tlsConn}
	}

	switch {
	case serverIdentify.Snappy:
		snappy := newSnappyStream(stream)
		if err := expectFrameOk(snappy, "Snappy upgrade"); err != nil {
			return nil, err
		}
		stream = snappy
	case serverIdentify.Deflate:
		deflate, err := newDeflateStream(stream, int(serverIdentify.DeflateLevel))
		if err != nil {
			return nil, &ProtocolError{Message: "invalid deflate_level from server: " + err.Error()}
		}
		if err := expectFrameOk(deflate, "Deflate upgrade"); err != nil {
			return nil, err
		}
		stream = deflate
	}

	conn := &Connection{
		netConn:           netConn,
		stream:            stream,
		br:                bufio.NewReader(stream),
		addr:              addr,
		heartbeatInterval: cfg.HeartbeatInterval,
	}

	if serverIdentify.AuthRequired {
		if err := conn.auth(cfg.AuthSecret); err != nil {
			return nil, err
		}
	}

	return conn, nil
}

// readIdentifyResponse performs the length-delimited read of step 4
// directly against the raw (not-yet-framed) transport, per §4.4: the
// framing codec isn't installed until after TLS/compression are decided,
// so this read must not consume anything beyond the one frame.
func readIdentifyResponse(r io.Reader, featureNegotiation bool) (*IdentifyResponse, error) {
	frame, err := readFrame(r)
	if err != nil {
		return nil, errors.Wrap(err, "read IDENTIFY response")
	}

	switch frame.Type {
	case FrameTypeResponse:
		switch frame.Response.Kind {
		case RawResponseJSON:
			var resp IdentifyResponse
			if err := json.Unmarshal(frame.Response.JSON, &resp); err != nil {
				return nil, errors.Wrap(err, "parse IDENTIFY response")
			}
			return &resp, nil
		case RawResponseOk:
			if featureNegotiation {
				return nil, &ProtocolError{Message: "unexpected bare OK with feature negotiation enabled"}
			}
			return defaultIdentifyResponse(), nil
		default:
			return nil, &ProtocolError{Message: "unexpected heartbeat/close-wait during IDENTIFY"}
		}
	case FrameTypeError:
		return nil, frame.Error
	default:
		return nil, &ProtocolError{Message: "unexpected message frame during IDENTIFY"}
	}
}

// expectFrameOk reads exactly one frame from r and requires it to be a
// bare Response::Ok, as produced after a successful TLS/compression
// upgrade (§4.3, §4.4 steps 5-6).
func expectFrameOk(r io.Reader, what string) error {
	frame, err := readFrame(r)
	if err != nil {
		return errors.Wrapf(err, "read post-%s OK", what)
	}
	if frame.Type != FrameTypeResponse || frame.Response.Kind != RawResponseOk {
		return &ProtocolError{Message: "invalid response from " + what}
	}
	return nil
}

func (c *Connection) auth(secret string) error {
	if secret == "" {
		return &AuthError{Message: "Required auth secret"}
	}

	c.writeMu.Lock()
	err := c.sendLocked(Auth(secret))
	c.writeMu.Unlock()
	if err != nil {
		return err
	}

	frame, err := readFrame(c.br)
	if err != nil {
		return errors.Wrap(err, "read AUTH response")
	}

	switch frame.Type {
	case FrameTypeResponse:
		if frame.Response.Kind != RawResponseJSON {
			return &ProtocolError{Message: "unexpected AUTH response frame"}
		}
		var resp AuthResponse
		if err := json.Unmarshal(frame.Response.JSON, &resp); err != nil {
			return errors.Wrap(err, "parse AUTH response")
		}
		return nil
	case FrameTypeError:
		return frame.Error
	default:
		return &ProtocolError{Message: "unexpected frame during AUTH"}
	}
}

// Send writes cmd to the connection and flushes it, serialized against
// any concurrent heartbeat reply. Send must not be called after Split: the
// Connection handle is consumed at that point and the returned Sink is the
// only valid way to write.
func (c *Connection) Send(cmd *Command) error {
	if c.consumed {
		return &ProtocolError{Message: "Send called on a Connection after Split"}
	}
	return c.send(cmd)
}

func (c *Connection) send(cmd *Command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sendLocked(cmd)
}

func (c *Connection) sendLocked(cmd *Command) error {
	if _, err := cmd.WriteTo(c.stream); err != nil {
		return errors.Wrap(err, "write command")
	}
	if err := c.stream.Flush(); err != nil {
		return errors.Wrap(err, "flush command")
	}
	return nil
}

// ResponseKind tags the payload carried by a Response.
type ResponseKind int

const (
	RespOk ResponseKind = iota
	RespErr
	RespMsg
)

// Response is what the heartbeat multiplexer hands the caller for every
// frame that isn't a heartbeat: a bare Ok, a non-fatal NSQ error, or a
// delivered Message.
type Response struct {
	Kind ResponseKind
	Err  *NsqError
	Msg  *Message
}

// Receive reads the next caller-visible frame, transparently answering
// and swallowing any number of heartbeats first (§4.5, I2/I3). It
// returns io.EOF when the server sends CLOSE_WAIT, and a fatal error
// (terminating the connection) for protocol violations or fatal NSQ
// errors. Receive must not be called after Split: the Connection handle is
// consumed at that point and the returned Stream is the only valid way to
// read.
func (c *Connection) Receive() (*Response, error) {
	if c.consumed {
		return nil, &ProtocolError{Message: "Receive called on a Connection after Split"}
	}
	return c.receive()
}

func (c *Connection) receive() (*Response, error) {
	for {
		frame, err := readFrame(c.br)
		if err != nil {
			return nil, err
		}

		switch frame.Type {
		case FrameTypeResponse:
			switch frame.Response.Kind {
			case RawResponseHeartbeat:
				if err := c.answerHeartbeat(); err != nil {
					return nil, err
				}
				continue
			case RawResponseOk:
				return &Response{Kind: RespOk}, nil
			case RawResponseCloseWait:
				return nil, io.EOF
			default: // RawResponseJSON
				return nil, &ProtocolError{Message: "unexpected JSON response frame after connect"}
			}
		case FrameTypeMessage:
			return &Response{Kind: RespMsg, Msg: frame.Message}, nil
		case FrameTypeError:
			if frame.Error.IsFatal() {
				return nil, frame.Error
			}
			return &Response{Kind: RespErr, Err: frame.Error}, nil
		default:
			return nil, &ProtocolError{Message: "unknown frame type"}
		}
	}
}

// Close closes the underlying transport stack (compression/TLS layers,
// then the TCP socket).
func (c *Connection) Close() error {
	return c.stream.Close()
}

// String returns the connection's destination address.
func (c *Connection) String() string {
	return c.addr
}

// Split transfers the Sink (write) and Stream (read) halves of the
// connection to separate owners for concurrent use; the Connection
// handle must not be used directly afterward.
func (c *Connection) Split() (*Sink, *Stream) {
	c.consumed = true
	return &Sink{conn: c}, &Stream{conn: c}
}
