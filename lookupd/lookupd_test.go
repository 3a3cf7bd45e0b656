package lookupd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" {
			t.Fatalf("path = %q, want /lookup", r.URL.Path)
		}
		if topic := r.URL.Query().Get("topic"); topic != "topic-a" {
			t.Fatalf("topic query = %q, want topic-a", topic)
		}
		json.NewEncoder(w).Encode(LookupResponse{
			Channels: []string{"chan-a"},
			Producers: []Producer{
				{BroadcastAddress: "nsqd-1", HTTPPort: 4151, TCPPort: 4150},
			},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := c.Lookup("topic-a")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(resp.Producers) != 1 || resp.Producers[0].BroadcastAddress != "nsqd-1" {
		t.Fatalf("got %+v", resp)
	}
	if len(resp.Channels) != 1 || resp.Channels[0] != "chan-a" {
		t.Fatalf("got %+v", resp)
	}
}

func TestCreateChannelUsesDocumentedEndpoint(t *testing.T) {
	var gotPath string
	var gotTopic, gotChannel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTopic = r.URL.Query().Get("topic")
		gotChannel = r.URL.Query().Get("channel")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.CreateChannel("topic-a", "chan-a"); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	if gotPath != "/channel/create" {
		t.Fatalf("path = %q, want /channel/create", gotPath)
	}
	if gotTopic != "topic-a" || gotChannel != "chan-a" {
		t.Fatalf("got topic=%q channel=%q", gotTopic, gotChannel)
	}
}

func TestPingNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Ping(); err == nil {
		t.Fatalf("expected Ping to fail on a 500 response")
	}
}

func TestTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TopicsResponse{Topics: []string{"a", "b"}})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := c.Topics()
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(resp.Topics) != 2 {
		t.Fatalf("got %d topics, want 2", len(resp.Topics))
	}
}
