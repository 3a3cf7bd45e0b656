package nsq

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"
)

// deflateStream wraps an inner byte transport with raw deflate (no
// zlib/gzip header) compression at a configurable level. Reads go
// through a buffered decompressing reader; writes go through a
// compressing writer that must be explicitly flushed after every
// command the peer needs to observe -- deflate.Writer otherwise holds
// output in its internal block buffer indefinitely.
type deflateStream struct {
	r      *bufio.Reader
	rc     io.ReadCloser
	w      *flate.Writer
	closer io.Closer
}

func newDeflateStream(inner io.ReadWriteCloser, level int) (*deflateStream, error) {
	rc := flate.NewReader(inner)
	w, err := flate.NewWriter(inner, level)
	if err != nil {
		return nil, errors.Wrap(err, "build deflate writer")
	}
	return &deflateStream{
		r:      bufio.NewReader(rc),
		rc:     rc,
		w:      w,
		closer: inner,
	}, nil
}

func (s *deflateStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *deflateStream) Write(p []byte) (int, error) { return s.w.Write(p) }

// Flush pushes any buffered compressed output to the underlying
// transport without ending the deflate stream, so the peer observes the
// bytes written so far.
func (s *deflateStream) Flush() error {
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, "flush deflate writer")
	}
	return nil
}

func (s *deflateStream) Close() error {
	_ = s.rc.Close()
	return s.closer.Close()
}
