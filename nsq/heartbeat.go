package nsq

// heartbeatState is the small state machine described in §4.5: a
// connection is either Reading frames off the wire, or Responding to a
// heartbeat it just saw (writing and flushing a Nop before it will
// consider itself Reading again). Modeling it explicitly, rather than
// interleaving an ad-hoc write into the receive path, keeps the ordering
// guarantee easy to state: the Nop for heartbeat N is fully flushed
// before any frame that arrived after N is handed to the caller.
type heartbeatState int

const (
	hbReading heartbeatState = iota
	hbResponding
)

// answerHeartbeat transitions Reading -> Responding -> Reading, writing
// and flushing exactly one Nop under the connection's write lock. It is
// called inline from the receive loop every time a `_heartbeat_` response
// frame is seen; the caller never observes that frame.
func (c *Connection) answerHeartbeat() error {
	c.hbState = hbResponding
	defer func() { c.hbState = hbReading }()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sendLocked(Nop())
}
