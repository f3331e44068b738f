package relay

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. SDP with many candidates fits.
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Client is one websocket connection to the relay.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Codec decodes frames read from and encodes frames written to Conn.
	Codec signaling.Codec

	// Send is the outbound queue drained by WritePump. Only the hub closes it.
	Send chan *signaling.Frame

	// topics is owned by the hub goroutine.
	topics map[string]struct{}
	remote string
	name   string
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, codec signaling.Codec) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		Codec:  codec,
		Send:   make(chan *signaling.Frame, sendBuffer),
		topics: make(map[string]struct{}),
		remote: conn.RemoteAddr().String(),
		name:   nickname(),
	}
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads on
// the connection happen on this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Hub.log.Debug("read error", "client", c.name, "err", err)
			}
			return
		}

		var f signaling.Frame
		if err := c.Codec.Unmarshal(data, &f); err != nil {
			c.Hub.log.Debug("dropping malformed frame", "client", c.name, "err", err)
			continue
		}

		select {
		case c.Hub.Inbound <- &Message{Frame: &f, client: c}:
		case <-c.Hub.done:
			return
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. All writes on
// the connection happen on this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.Codec.Marshal(f)
			if err != nil {
				c.Hub.log.Error("encode frame", "client", c.name, "err", err)
				continue
			}
			if err := c.Conn.WriteMessage(c.Codec.MessageType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.Hub.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay shutting down"))
			return
		}
	}
}
