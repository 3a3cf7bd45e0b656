package nsq

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 30s", cfg.HeartbeatInterval)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.MaxInFlight != 8 {
		t.Errorf("MaxInFlight = %d, want 8", cfg.MaxInFlight)
	}
	if cfg.OutputBufferSize != 16*1024 {
		t.Errorf("OutputBufferSize = %d, want 16KiB", cfg.OutputBufferSize)
	}
	if !cfg.FeatureNegotiation {
		t.Errorf("FeatureNegotiation = false, want true")
	}
}

func TestIdentifyJSONOmitsAuthSecret(t *testing.T) {
	cfg := NewConfig()
	cfg.AuthSecret = "super-secret"

	js, err := cfg.identifyJSON()
	if err != nil {
		t.Fatalf("identifyJSON: %v", err)
	}
	if strings.Contains(string(js), "super-secret") {
		t.Fatalf("AuthSecret leaked into IDENTIFY document: %s", js)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(js, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"max_attempts", "max_in_flight"} {
		if _, ok := doc[key]; ok {
			t.Errorf("identify document unexpectedly carries client-only key %q", key)
		}
	}
}

func TestIdentifyJSONCompressionMutuallyExclusive(t *testing.T) {
	cfg := NewConfig()
	cfg.Compress = Compress{Mode: CompressionDeflate, Level: 6}

	js, err := cfg.identifyJSON()
	if err != nil {
		t.Fatalf("identifyJSON: %v", err)
	}

	var doc identifyDoc
	if err := json.Unmarshal(js, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !doc.Deflate || doc.Snappy {
		t.Fatalf("got deflate=%v snappy=%v, want deflate only", doc.Deflate, doc.Snappy)
	}
	if doc.DeflateLevel != 6 {
		t.Fatalf("DeflateLevel = %d, want 6", doc.DeflateLevel)
	}
}
