package nsq

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// CompressionMode selects at most one of Snappy or Deflate compression to
// negotiate during IDENTIFY. The zero value is CompressionDisabled.
type CompressionMode int

const (
	CompressionDisabled CompressionMode = iota
	CompressionSnappy
	CompressionDeflate
)

// Compress describes the compression the client is willing to negotiate.
// Mode selects which of the two (if either) is active; Level only applies
// to CompressionDeflate.
type Compress struct {
	Mode  CompressionMode
	Level uint32
}

// TLSConfig describes the client-side TLS material for an upgraded
// connection. Every field here is honored: unlike one historical variant
// of this client, RootCAFile/CertFile/KeyFile are always loaded when set.
type TLSConfig struct {
	Domain             string
	RootCAFile         string
	CertFile           string
	KeyFile            string
	InsecureSkipVerify bool
}

// Config carries the per-connection options serialized into the IDENTIFY
// command and used to drive handshake behavior.
type Config struct {
	ClientID  string
	Hostname  string
	UserAgent string

	TLSV1 *TLSConfig

	Compress Compress

	HeartbeatInterval   time.Duration
	MaxAttempts         uint16
	MaxInFlight         int
	OutputBufferSize    int
	OutputBufferTimeout time.Duration
	MsgTimeout          time.Duration
	SampleRate          uint8

	// AuthSecret is never serialized into the IDENTIFY document; it is
	// only sent, opaquely, in response to an auth_required capability.
	AuthSecret string

	// FeatureNegotiation, when false, lets the handshake accept a bare OK
	// in reply to IDENTIFY, in which case every server capability is
	// treated as disabled; a JSON IdentifyResponse is still parsed and
	// used if the server sends one.
	FeatureNegotiation bool
}

// NewConfig returns a Config populated with the defaults from §6: a 30s
// heartbeat, 5 max attempts, 8 max in flight, a 16KiB output buffer with a
// 250ms flush timeout, a 5s message timeout, and feature negotiation on.
func NewConfig() *Config {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Config{
		ClientID:            hostname,
		Hostname:            hostname,
		UserAgent:           "nsq-go/" + VERSION,
		Compress:            Compress{Mode: CompressionDisabled},
		HeartbeatInterval:   30 * time.Second,
		MaxAttempts:         5,
		MaxInFlight:         8,
		OutputBufferSize:    16 * 1024,
		OutputBufferTimeout: 250 * time.Millisecond,
		MsgTimeout:          5000 * time.Millisecond,
		FeatureNegotiation:  true,
	}
}

// identifyDoc is the wire shape of the IDENTIFY JSON body. Durations are
// rendered as integer milliseconds, TLS as a single enabled/disabled
// bool, and compression as the appropriate pair of snappy/deflate keys;
// AuthSecret never appears here.
type identifyDoc struct {
	ClientID            string `json:"client_id"`
	Hostname            string `json:"hostname"`
	UserAgent           string `json:"user_agent"`
	TLSV1               bool   `json:"tls_v1"`
	Snappy              bool   `json:"snappy"`
	Deflate             bool   `json:"deflate"`
	DeflateLevel        uint32 `json:"deflate_level,omitempty"`
	HeartbeatInterval   int64  `json:"heartbeat_interval"`
	OutputBufferSize    int    `json:"output_buffer_size"`
	OutputBufferTimeout int64  `json:"output_buffer_timeout"`
	MsgTimeout          int64  `json:"msg_timeout"`
	SampleRate          uint8  `json:"sample_rate"`
	FeatureNegotiation  bool   `json:"feature_negotiation"`
}

// identifyJSON renders the IDENTIFY document described in §3.
func (c *Config) identifyJSON() ([]byte, error) {
	doc := identifyDoc{
		ClientID:            c.ClientID,
		Hostname:            c.Hostname,
		UserAgent:           c.UserAgent,
		TLSV1:               c.TLSV1 != nil,
		HeartbeatInterval:   durationMillis(c.HeartbeatInterval),
		OutputBufferSize:    c.OutputBufferSize,
		OutputBufferTimeout: durationMillis(c.OutputBufferTimeout),
		MsgTimeout:          durationMillis(c.MsgTimeout),
		SampleRate:          c.SampleRate,
		FeatureNegotiation:  c.FeatureNegotiation,
	}

	switch c.Compress.Mode {
	case CompressionSnappy:
		doc.Snappy = true
	case CompressionDeflate:
		doc.Deflate = true
		doc.DeflateLevel = c.Compress.Level
	}

	js, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrap(err, "marshal IDENTIFY document")
	}
	return js, nil
}

func durationMillis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}

// IdentifyResponse is the server's IDENTIFY capability announcement.
type IdentifyResponse struct {
	MaxRdyCount         int64  `json:"max_rdy_count"`
	AuthRequired        bool   `json:"auth_required"`
	Deflate             bool   `json:"deflate"`
	DeflateLevel        uint32 `json:"deflate_level"`
	MaxDeflateLevel     uint32 `json:"max_deflate_level"`
	MaxMsgTimeout       int64  `json:"max_msg_timeout"`
	MsgTimeout          int64  `json:"msg_timeout"`
	OutputBufferSize    int    `json:"output_buffer_size"`
	OutputBufferTimeout int64  `json:"output_buffer_timeout"`
	SampleRate          int32  `json:"sample_rate"`
	Snappy              bool   `json:"snappy"`
	TLSV1               bool   `json:"tls_v1"`
	Version             string `json:"version"`
}

// defaultIdentifyResponse is used when FeatureNegotiation is false and
// the server replies with a bare Response::Ok instead of a capability
// document (§4.4 step 4).
func defaultIdentifyResponse() *IdentifyResponse {
	return &IdentifyResponse{}
}

// AuthResponse is the server's reply to an AUTH command.
type AuthResponse struct {
	Identify        string `json:"identify"`
	IdentifyURL     string `json:"identify_url,omitempty"`
	PermissionCount int64  `json:"permission_count"`
}
