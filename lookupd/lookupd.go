// Package lookupd implements an HTTP client for nsqlookupd, the topic
// discovery daemon that sits alongside a cluster of nsqd.
package lookupd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds every request issued by a Client.
const DefaultTimeout = 5 * time.Second

// Client talks to a single nsqlookupd over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New builds a Client for the nsqlookupd reachable at httpAddr, which must
// be a full http(s):// base URL.
func New(httpAddr string) (*Client, error) {
	u, err := url.Parse(httpAddr)
	if err != nil {
		return nil, errors.Wrap(err, "parse lookupd address")
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
	}, nil
}

// Producer describes one nsqd instance as reported by nsqlookupd.
type Producer struct {
	BroadcastAddress string `json:"broadcast_address"`
	Hostname         string `json:"hostname"`
	RemoteAddress    string `json:"remote_address"`
	TCPPort          int    `json:"tcp_port"`
	HTTPPort         int    `json:"http_port"`
	Version          string `json:"version"`
}

// Node is a Producer plus the topics and tombstone state nsqlookupd tracks
// for it, as returned from /nodes.
type Node struct {
	BroadcastAddress string   `json:"broadcast_address"`
	Hostname         string   `json:"hostname"`
	RemoteAddress    string   `json:"remote_address"`
	TCPPort          int      `json:"tcp_port"`
	HTTPPort         int      `json:"http_port"`
	Version          string   `json:"version"`
	Tombstones       []bool   `json:"tombstones"`
	Topics           []string `json:"topics"`
}

// LookupResponse is the body of a /lookup request: every channel and
// producer known for the queried topic.
type LookupResponse struct {
	Channels  []string   `json:"channels"`
	Producers []Producer `json:"producers"`
}

// TopicsResponse is the body of a /topics request.
type TopicsResponse struct {
	Topics []string `json:"topics"`
}

// ChannelsResponse is the body of a /channels request.
type ChannelsResponse struct {
	Channels []string `json:"channels"`
}

// NodesResponse is the body of a /nodes request.
type NodesResponse struct {
	Producers []Node `json:"producers"`
}

// InfoResponse is the body of an /info request.
type InfoResponse struct {
	Version string `json:"version"`
}

// Lookup returns the channels and producers nsqlookupd has registered for
// topic.
func (c *Client) Lookup(topic string) (*LookupResponse, error) {
	var resp LookupResponse
	if err := c.getJSON("/lookup", url.Values{"topic": {topic}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Topics returns every topic nsqlookupd knows about.
func (c *Client) Topics() (*TopicsResponse, error) {
	var resp TopicsResponse
	if err := c.getJSON("/topics", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Channels returns every channel registered under topic.
func (c *Client) Channels(topic string) (*ChannelsResponse, error) {
	var resp ChannelsResponse
	if err := c.getJSON("/channels", url.Values{"topic": {topic}}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Nodes returns every nsqd instance nsqlookupd has a heartbeat from.
func (c *Client) Nodes() (*NodesResponse, error) {
	var resp NodesResponse
	if err := c.getJSON("/nodes", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateTopic registers topic with nsqlookupd.
func (c *Client) CreateTopic(topic string) error {
	return c.post("/topic/create", url.Values{"topic": {topic}})
}

// DeleteTopic removes topic, and every channel under it, from nsqlookupd.
func (c *Client) DeleteTopic(topic string) error {
	return c.post("/topic/delete", url.Values{"topic": {topic}})
}

// CreateChannel registers channel under topic.
//
// nsqlookupd documents a dedicated /channel/create endpoint for this; it is
// used here instead of reusing /topic/create, which would register the
// channel but not distinguish the request from a plain topic creation in
// nsqlookupd's access log.
func (c *Client) CreateChannel(topic, channel string) error {
	return c.post("/channel/create", url.Values{"topic": {topic}, "channel": {channel}})
}

// DeleteChannel removes channel from topic.
//
// As with CreateChannel, the documented /channel/delete endpoint is used
// rather than reusing /topic/delete.
func (c *Client) DeleteChannel(topic, channel string) error {
	return c.post("/channel/delete", url.Values{"topic": {topic}, "channel": {channel}})
}

// TombstoneProducer marks node as tombstoned for topic, so nsqlookupd stops
// returning it from Lookup until the tombstone expires.
func (c *Client) TombstoneProducer(topic string, node *Node) error {
	nodeAddr := fmt.Sprintf("%s:%d", node.BroadcastAddress, node.HTTPPort)
	return c.post("/topic/tombstone", url.Values{"topic": {topic}, "node": {nodeAddr}})
}

// Ping checks that nsqlookupd is reachable and healthy.
func (c *Client) Ping() error {
	resp, err := c.http.Get(c.endpoint("/ping", nil))
	if err != nil {
		return errors.Wrap(err, "ping lookupd")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("lookupd ping returned status %d", resp.StatusCode)
	}
	return nil
}

// Info returns nsqlookupd's version information.
func (c *Client) Info() (*InfoResponse, error) {
	var resp InfoResponse
	if err := c.getJSON("/info", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(path string, query url.Values, out interface{}) error {
	resp, err := c.http.Get(c.endpoint(path, query))
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("lookupd %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

func (c *Client) post(path string, query url.Values) error {
	resp, err := c.http.Post(c.endpoint(path, query), "", nil)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("lookupd %s returned status %d", path, resp.StatusCode)
	}
	return nil
}
