package relay

import "github.com/aadsdarts/spectators-videochat/internal/signaling"

// Message is a frame read from a client, tagged with its origin for the hub.
type Message struct {
	Frame *signaling.Frame

	// client is the connection the frame arrived on.
	client *Client
}
