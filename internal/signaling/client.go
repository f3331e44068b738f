package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aadsdarts/spectators-videochat/internal/dns"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrClientClosed is returned when sending on a closed client.
var ErrClientClosed = errors.New("signaling client closed")

// Client multiplexes topic channels over one websocket connection to the relay.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	codec     Codec
	log       *slog.Logger

	outgoing chan *Frame
	done     chan struct{}
	lost     chan struct{}

	mu        sync.Mutex
	channels  map[string]*Channel
	closeOnce sync.Once
}

// NewClient creates a client for the relay at serverURL.
func NewClient(serverURL string, codec Codec, logger *slog.Logger) *Client {
	if codec == nil {
		codec = JSONCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		serverURL: serverURL,
		codec:     codec,
		log:       logger.With("component", "signaling"),
		outgoing:  make(chan *Frame, 16),
		done:      make(chan struct{}),
		lost:      make(chan struct{}),
		channels:  make(map[string]*Channel),
	}
}

// Connect dials the relay and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	q := u.Query()
	q.Set("codec", c.codec.Name())
	u.RawQuery = q.Encode()

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ip, err := dns.Lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}

		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.log.Debug("connected to relay", "url", u.Redacted(), "codec", c.codec.Name())

	go c.readPump()
	go c.writePump()

	return nil
}

// Codec returns the codec frames are exchanged with.
func (c *Client) Codec() Codec {
	return c.codec
}

// Channel returns the channel for topic, creating it on first use.
func (c *Client) Channel(topic string) *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.channels[topic]; ok {
		return ch
	}
	ch := newChannel(c, topic)
	c.channels[topic] = ch
	return ch
}

// Lost is closed when the connection to the relay ends for any reason.
func (c *Client) Lost() <-chan struct{} {
	return c.lost
}

func (c *Client) forget(ch *Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channels[ch.topic] == ch {
		delete(c.channels, ch.topic)
	}
}

func (c *Client) send(ctx context.Context, f *Frame) error {
	select {
	case <-c.done:
		return ErrClientClosed
	case <-c.lost:
		return ErrClientClosed
	default:
	}

	select {
	case c.outgoing <- f:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-c.lost:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPump decodes frames and routes them to their topic channel.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.lost)

		c.mu.Lock()
		channels := make([]*Channel, 0, len(c.channels))
		for _, ch := range c.channels {
			channels = append(channels, ch)
		}
		c.channels = make(map[string]*Channel)
		c.mu.Unlock()

		for _, ch := range channels {
			ch.closeEvents()
		}
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("relay connection lost", "err", err)
			}
			return
		}

		var f Frame
		if err := c.codec.Unmarshal(data, &f); err != nil {
			c.log.Debug("dropping malformed frame", "err", err)
			continue
		}

		c.mu.Lock()
		ch := c.channels[f.Topic]
		c.mu.Unlock()
		if ch == nil {
			c.log.Debug("frame for unknown topic", "topic", f.Topic, "op", f.Op)
			continue
		}
		ch.deliver(&f)
	}
}

// writePump writes queued frames and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f := <-c.outgoing:
			data, err := c.codec.Marshal(f)
			if err != nil {
				c.log.Error("encode frame", "topic", f.Topic, "op", f.Op, "err", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.MessageType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.lost:
			return

		case <-c.done:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes frames still queued when the client is closed, such as a
// final unsubscribe.
func (c *Client) flush() {
	for {
		select {
		case f := <-c.outgoing:
			data, err := c.codec.Marshal(f)
			if err != nil {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.MessageType(), data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn == nil {
			close(c.lost)
		}
	})
}
