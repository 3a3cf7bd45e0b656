package nsq

import "fmt"

// NsqError is a FrameTypeError frame parsed into its code and description.
//
// Per the NSQ protocol, most error codes are fatal to the connection; a
// small set of them report a failed per-message operation and leave the
// connection usable (see IsFatal).
type NsqError struct {
	Code        string
	Description string
}

func newNsqError(code, description string) *NsqError {
	return &NsqError{Code: code, Description: description}
}

func (e *NsqError) Error() string {
	return fmt.Sprintf("NSQ: %s - %s", e.Code, e.Description)
}

// IsFatal reports whether this error should terminate the connection.
// E_FIN_FAILED, E_REQ_FAILED and E_TOUCH_FAILED are the only non-fatal
// codes nsqd sends; every other code ends the stream.
func (e *NsqError) IsFatal() bool {
	switch e.Code {
	case "E_FIN_FAILED", "E_REQ_FAILED", "E_TOUCH_FAILED":
		return false
	default:
		return true
	}
}

// AuthError is returned when the authenticated phase of the handshake
// cannot proceed, e.g. a server requires AUTH but no secret was configured.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "auth error: " + e.Message
}

// ProtocolError marks a deviation from the expected frame sequence during
// the handshake or steady-state operation (unknown frame type, unexpected
// frame where only one kind is legitimate, and so on). It is always fatal.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Message
}
