package nsq

import (
	"io"

	"github.com/mreiferson/go-snappystream"
)

// snappyStream wraps an inner byte transport with block-framed Snappy
// compression, compatible with the google/snappy framed format, as used
// by nsqd. There is exactly one instance per connection and its state
// (the block boundary bookkeeping done by go-snappystream) is scoped to
// that connection's lifetime.
type snappyStream struct {
	r      io.Reader
	w      io.Writer
	closer io.Closer
}

func newSnappyStream(inner io.ReadWriteCloser) *snappyStream {
	return &snappyStream{
		r:      snappystream.NewReader(inner, snappystream.SkipVerifyChecksum),
		w:      snappystream.NewWriter(inner),
		closer: inner,
	}
}

func (s *snappyStream) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *snappyStream) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *snappyStream) Close() error                { return s.closer.Close() }

// Flush is a no-op: go-snappystream's Writer emits a complete framed
// block per Write call, so there is no internal buffering to drain.
func (s *snappyStream) Flush() error { return nil }
