package relay

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

// Hub owns every topic and subscription. All state is touched only from the
// goroutine running Run.
type Hub struct {
	topics map[string]*Topic

	// Register receives newly upgraded connections.
	Register chan *Client

	// Unregister receives connections whose read pump has stopped.
	Unregister chan *Client

	// Inbound carries frames read from any client.
	Inbound chan *Message

	done chan struct{}
	log  *slog.Logger

	clientCount atomic.Int64
	topicCount  atomic.Int64
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		topics:     make(map[string]*Topic),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
		done:       make(chan struct{}),
		log:        logger.With("component", "relay"),
	}
}

// Stats reports the current number of connections and topics.
func (h *Hub) Stats() (clients, topics int64) {
	return h.clientCount.Load(), h.topicCount.Load()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes registrations and frames until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.clientCount.Add(1)
			h.log.Debug("client registered", "client", client.name, "remote", client.remote, "codec", client.Codec.Name())

		case client := <-h.Unregister:
			h.unregister(client)

		case msg := <-h.Inbound:
			h.handle(msg)
		}
	}
}

func (h *Hub) unregister(client *Client) {
	h.log.Debug("client unregistered", "client", client.name)

	// 1. Drop every subscription the client still holds
	for name := range client.topics {
		h.leave(client, name)
	}

	// 2. Close the send channel to stop its write pump
	close(client.Send)
	h.clientCount.Add(-1)
}

func (h *Hub) handle(msg *Message) {
	f, client := msg.Frame, msg.client

	if f.Topic == "" {
		h.reject(client, f, "topic is required")
		return
	}

	switch f.Op {
	case signaling.OpSubscribe:
		t, ok := h.topics[f.Topic]
		if !ok {
			t = newTopic(f.Topic)
			h.topics[f.Topic] = t
			h.topicCount.Add(1)
		}
		t.add(client)
		client.topics[f.Topic] = struct{}{}

		h.log.Debug("subscribed", "topic", f.Topic, "client", client.name, "subscribers", t.size())
		h.deliver(client, &signaling.Frame{Op: signaling.OpStatus, Topic: f.Topic, Status: signaling.StatusSubscribed})

	case signaling.OpUnsubscribe:
		h.leave(client, f.Topic)
		h.deliver(client, &signaling.Frame{Op: signaling.OpStatus, Topic: f.Topic, Status: signaling.StatusClosed})

	case signaling.OpBroadcast:
		if _, ok := client.topics[f.Topic]; !ok {
			h.reject(client, f, "not subscribed to topic")
			return
		}
		h.broadcast(client, f)

	default:
		h.reject(client, f, "unsupported op")
	}
}

// broadcast fans f out to every subscriber except the sender, re-encoding
// the payload once per codec in use.
func (h *Hub) broadcast(sender *Client, f *signaling.Frame) {
	t := h.topics[f.Topic]
	encoded := map[string]signaling.Raw{sender.Codec.Name(): f.Payload}

	for sub := range t.Subscribers {
		if sub == sender {
			continue
		}

		payload, ok := encoded[sub.Codec.Name()]
		if !ok {
			var err error
			payload, err = signaling.Transcode(sender.Codec, sub.Codec, f.Payload)
			if err != nil {
				h.log.Warn("dropping broadcast", "topic", f.Topic, "event", f.Event, "err", err)
				return
			}
			encoded[sub.Codec.Name()] = payload
		}

		h.deliver(sub, &signaling.Frame{
			Op:      signaling.OpBroadcast,
			Topic:   f.Topic,
			Event:   f.Event,
			Payload: payload,
		})
	}
}

func (h *Hub) leave(client *Client, name string) {
	delete(client.topics, name)

	t, ok := h.topics[name]
	if !ok {
		return
	}
	t.remove(client)
	if t.size() == 0 {
		delete(h.topics, name)
		h.topicCount.Add(-1)
		h.log.Debug("topic removed", "topic", name)
	}
}

func (h *Hub) reject(client *Client, f *signaling.Frame, reason string) {
	h.log.Debug("rejecting frame", "op", f.Op, "topic", f.Topic, "reason", reason)
	h.deliver(client, &signaling.Frame{Op: signaling.OpError, Topic: f.Topic, Error: reason})
}

// deliver queues f without blocking the hub. Slow clients lose frames.
func (h *Hub) deliver(client *Client, f *signaling.Frame) {
	select {
	case client.Send <- f:
	default:
		h.log.Warn("client send buffer full, dropping frame", "client", client.name, "topic", f.Topic, "op", f.Op)
	}
}
