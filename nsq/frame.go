package nsq

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// RawResponseKind distinguishes the handful of well-known FrameTypeResponse
// bodies ("OK", "_heartbeat_", "CLOSE_WAIT") from an arbitrary JSON payload
// (the IDENTIFY response, the AUTH response).
type RawResponseKind int

const (
	RawResponseOk RawResponseKind = iota
	RawResponseHeartbeat
	RawResponseCloseWait
	RawResponseJSON
)

// RawResponse is a decoded FrameTypeResponse body.
type RawResponse struct {
	Kind RawResponseKind
	JSON json.RawMessage
}

// Frame is a fully decoded inbound frame: exactly one of Response, Error
// or Message is set, matching the frame_type that was read off the wire.
type Frame struct {
	Type     FrameType
	Response *RawResponse
	Error    *NsqError
	Message  *Message
}

// readFrame performs one blocking, length-delimited read of a single
// frame from r: a 4-byte big-endian total length, then that many bytes
// of payload (4-byte frame type + type-specific body). Unlike the
// incremental decoder an async codec needs, a synchronous Read here can
// simply block until the full frame has arrived.
func readFrame(r io.Reader) (*Frame, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length < 4 {
		return nil, &ProtocolError{Message: fmt.Sprintf("frame length %d too small for a frame type", length)}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "read frame payload")
	}

	frameType := FrameType(binary.BigEndian.Uint32(payload[:4]))
	body := payload[4:]

	switch frameType {
	case FrameTypeResponse:
		resp, err := decodeRawResponse(body)
		if err != nil {
			return nil, err
		}
		return &Frame{Type: frameType, Response: resp}, nil
	case FrameTypeError:
		return &Frame{Type: frameType, Error: decodeNsqError(body)}, nil
	case FrameTypeMessage:
		msg, err := decodeMessage(body)
		if err != nil {
			return nil, err
		}
		return &Frame{Type: frameType, Message: msg}, nil
	default:
		return nil, &ProtocolError{Message: fmt.Sprintf("unknown frame type %d", frameType)}
	}
}

func decodeRawResponse(body []byte) (*RawResponse, error) {
	switch string(body) {
	case rawResponseOk:
		return &RawResponse{Kind: RawResponseOk}, nil
	case rawResponseHeartbeat:
		return &RawResponse{Kind: RawResponseHeartbeat}, nil
	case rawResponseCloseWait:
		return &RawResponse{Kind: RawResponseCloseWait}, nil
	default:
		if !json.Valid(body) {
			return nil, errors.Errorf("response body is neither a known literal nor valid JSON: %q", body)
		}
		return &RawResponse{Kind: RawResponseJSON, JSON: json.RawMessage(body)}, nil
	}
}

func decodeNsqError(body []byte) *NsqError {
	s := string(body)
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		return newNsqError(s[:idx], strings.TrimSpace(s[idx+1:]))
	}
	return newNsqError("Unknown", s)
}
