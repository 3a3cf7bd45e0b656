package nsq

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func buildFrame(frameType FrameType, body []byte) []byte {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(4+len(body)))
	buf.Write(lenBuf[:])
	var typeBuf [4]byte
	binary.BigEndian.PutUint32(typeBuf[:], uint32(frameType))
	buf.Write(typeBuf[:])
	buf.Write(body)
	return buf.Bytes()
}

func TestReadFrameOkResponse(t *testing.T) {
	r := bytes.NewReader(buildFrame(FrameTypeResponse, []byte("OK")))
	frame, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if frame.Type != FrameTypeResponse || frame.Response.Kind != RawResponseOk {
		t.Fatalf("got %+v, want a bare OK response", frame)
	}
}

func TestReadFrameHeartbeat(t *testing.T) {
	r := bytes.NewReader(buildFrame(FrameTypeResponse, []byte("_heartbeat_")))
	frame, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if frame.Response.Kind != RawResponseHeartbeat {
		t.Fatalf("got kind %v, want heartbeat", frame.Response.Kind)
	}
}

func TestReadFrameJSONResponse(t *testing.T) {
	r := bytes.NewReader(buildFrame(FrameTypeResponse, []byte(`{"max_rdy_count":2500}`)))
	frame, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if frame.Response.Kind != RawResponseJSON {
		t.Fatalf("got kind %v, want JSON", frame.Response.Kind)
	}
}

func TestReadFrameError(t *testing.T) {
	r := bytes.NewReader(buildFrame(FrameTypeError, []byte("E_BAD_TOPIC topic name is invalid")))
	frame, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if frame.Type != FrameTypeError {
		t.Fatalf("got type %v, want error", frame.Type)
	}
	if frame.Error.Code != "E_BAD_TOPIC" || frame.Error.Description != "topic name is invalid" {
		t.Fatalf("got %+v", frame.Error)
	}
	if !frame.Error.IsFatal() {
		t.Fatalf("E_BAD_TOPIC should be fatal")
	}
}

func TestReadFrameNonFatalError(t *testing.T) {
	r := bytes.NewReader(buildFrame(FrameTypeError, []byte("E_FIN_FAILED no such message")))
	frame, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if frame.Error.IsFatal() {
		t.Fatalf("E_FIN_FAILED should not be fatal")
	}
}

func TestReadFrameMessage(t *testing.T) {
	msg := NewMessage(MessageID{'1', '2', '3', '4', '5', '6', '7', '8', '9', '0', 'a', 'b', 'c', 'd', 'e', 'f'}, []byte("payload"))
	msg.Attempts = 1

	var body bytes.Buffer
	if err := msg.Write(&body); err != nil {
		t.Fatalf("Message.Write: %v", err)
	}

	r := bytes.NewReader(buildFrame(FrameTypeMessage, body.Bytes()))
	frame, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if frame.Type != FrameTypeMessage {
		t.Fatalf("got type %v, want message", frame.Type)
	}
	if string(frame.Message.Body) != "payload" {
		t.Fatalf("got body %q", frame.Message.Body)
	}
	if frame.Message.Attempts != 1 {
		t.Fatalf("got attempts %d, want 1", frame.Message.Attempts)
	}
	if frame.Message.ID != msg.ID {
		t.Fatalf("got id %v, want %v", frame.Message.ID, msg.ID)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	full := buildFrame(FrameTypeResponse, []byte("OK"))
	r := bytes.NewReader(full[:len(full)-1])
	_, err := readFrame(r)
	if err == nil {
		t.Fatalf("expected error on truncated frame")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) && err != io.EOF {
		t.Logf("truncated read error: %v", err)
	}
}

func TestReadFrameUnknownType(t *testing.T) {
	r := bytes.NewReader(buildFrame(FrameType(99), nil))
	_, err := readFrame(r)
	if err == nil {
		t.Fatalf("expected error for unknown frame type")
	}
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("got %T, want *ProtocolError", err)
	}
}
