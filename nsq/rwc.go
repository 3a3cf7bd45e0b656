package nsq

import "io"

// flushableStream is what each layer of the transport stack (raw TCP,
// TLS, Snappy, Deflate) presents to the layer above it, so the framing
// codec and the rest of Connection don't need to know which combination
// is in effect. Flush only does real work for Deflate; the others are
// no-ops because every Write already reaches the peer (or, for Snappy,
// because go-snappystream emits one complete block per Write).
type flushableStream interface {
	io.Reader
	io.Writer
	io.Closer
	Flush() error
}

// rawStream adapts a plain io.ReadWriteCloser (the TCP socket, or a
// *tls.Conn) to flushableStream with a no-op Flush.
type rawStream struct {
	io.ReadWriteCloser
}

func (rawStream) Flush() error { return nil }
