// Package client is a small Go client for the ohtalk line protocol, used by
// the end-to-end suite and handy for scripting against a running server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"ohtalk/protocol"
	"ohtalk/transport"
)

const eventBuffer = 64

var eventTypes = map[string]bool{
	protocol.EventFriendRequestListUpdated: true,
	protocol.EventFriendListUpdated:        true,
	protocol.EventChatRoomsUpdated:         true,
	protocol.EventNewMessage:               true,
}

// Reply is a response or pushed event with its data left raw.
type Reply struct {
	Type   string          `json:"type"`
	Status protocol.Status `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (r Reply) OK() bool { return r.Status == protocol.StatusOK }

// Reason returns the failure reason, empty for ok replies.
func (r Reply) Reason() string {
	var failure protocol.Failure
	if r.OK() || json.Unmarshal(r.Data, &failure) != nil {
		return ""
	}
	return failure.Reason
}

func (r Reply) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Client sends one request at a time and waits for its response. Pushed
// events arriving meanwhile go to Events.
type Client struct {
	conn      *transport.LineConn
	log       *slog.Logger
	mu        sync.Mutex
	pendingMu sync.Mutex
	abandoned int // responses still owed to requests whose ctx expired
	responses chan Reply
	events    chan Reply
	done      chan struct{}
	err       error
}

func Dial(ctx context.Context, address string, log *slog.Logger) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", address, err)
	}
	c := &Client{
		conn:      transport.NewLineConn(conn, nil),
		log:       log,
		responses: make(chan Reply, 1),
		events:    make(chan Reply, eventBuffer),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers pushes in arrival order. It is closed with the connection.
func (c *Client) Events() <-chan Reply { return c.events }

// Request sends {type, data} and returns the matching response.
func (c *Client) Request(ctx context.Context, requestType string, data any) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := json.Marshal(map[string]any{"type": requestType, "data": data})
	if err != nil {
		return Reply{}, err
	}
	if err = c.conn.WriteFrame(frame); err != nil {
		return Reply{}, fmt.Errorf("send %s: %w", requestType, err)
	}
	select {
	case reply := <-c.responses:
		if reply.Type != requestType {
			return reply, fmt.Errorf("expected %s response, got %s", requestType, reply.Type)
		}
		return reply, nil
	case <-c.done:
		return Reply{}, fmt.Errorf("connection closed: %w", c.err)
	case <-ctx.Done():
		c.abandon()
		return Reply{}, ctx.Err()
	}
}

// abandon discards the response of a request nobody waits for anymore,
// now if it already arrived or later in readLoop.
func (c *Client) abandon() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	select {
	case <-c.responses:
	default:
		c.abandoned++
	}
}

func (c *Client) deliver(reply Reply) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.abandoned > 0 {
		c.abandoned--
		c.log.Debug("Dropping late response", "type", reply.Type)
		return
	}
	select {
	case c.responses <- reply:
	default:
		c.log.Warn("Unexpected response, dropping", "type", reply.Type)
	}
}

// WaitEvent returns the next push of the given type, dropping others.
func (c *Client) WaitEvent(ctx context.Context, eventType string) (Reply, error) {
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return Reply{}, fmt.Errorf("connection closed while waiting for %s", eventType)
			}
			if event.Type == eventType {
				return event, nil
			}
		case <-ctx.Done():
			return Reply{}, fmt.Errorf("waiting for %s: %w", eventType, ctx.Err())
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)
	defer close(c.done)
	for {
		frame, err := c.conn.ReadFrame()
		if err != nil {
			if err != io.EOF {
				c.log.Debug("Client read stopped", "error", err)
			}
			c.err = err
			return
		}
		var reply Reply
		if err = json.Unmarshal(frame, &reply); err != nil {
			c.log.Warn("Dropping undecodable frame", "error", err)
			continue
		}
		if eventTypes[reply.Type] {
			select {
			case c.events <- reply:
			default:
				c.log.Warn("Event buffer full, dropping", "type", reply.Type)
			}
			continue
		}
		c.deliver(reply)
	}
}
