package nsq

// Sink is the write half of a split Connection. Commands issued to it in
// order T1 < T2 reach nsqd in that order; back-pressure, if any, comes
// only from the underlying transport's own write buffering.
type Sink struct {
	conn *Connection
}

// Send writes cmd to the connection.
func (s *Sink) Send(cmd *Command) error {
	return s.conn.send(cmd)
}

// Close closes the underlying transport, which also ends the paired
// Stream.
func (s *Sink) Close() error {
	return s.conn.Close()
}

// Stream is the read half of a split Connection. A single goroutine
// should drive Recv; the heartbeat multiplexer answers `_heartbeat_`
// frames inline and never surfaces them here.
type Stream struct {
	conn *Connection
}

// Recv reads the next caller-visible frame.
func (s *Stream) Recv() (*Response, error) {
	return s.conn.receive()
}

// Close closes the underlying transport, which also ends the paired
// Sink.
func (s *Stream) Close() error {
	return s.conn.Close()
}
