package signaling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

const eventBuffer = 64

// Channel is a subscription to one relay topic. Status notifications and
// decoded broadcasts arrive on Events in the order the relay sent them.
type Channel struct {
	client *Client
	topic  string

	events       chan Event
	unsubscribed chan struct{}
	subscribed   atomic.Bool

	unsubOnce sync.Once
	closeOnce sync.Once
}

func newChannel(c *Client, topic string) *Channel {
	return &Channel{
		client:       c,
		topic:        topic,
		events:       make(chan Event, eventBuffer),
		unsubscribed: make(chan struct{}),
	}
}

// Topic returns the topic name.
func (ch *Channel) Topic() string {
	return ch.topic
}

// Events returns the event stream. It is closed when the relay connection is lost.
func (ch *Channel) Events() <-chan Event {
	return ch.events
}

// Subscribe asks the relay to join the topic. StatusSubscribed is delivered
// on Events once the relay confirms.
func (ch *Channel) Subscribe(ctx context.Context) error {
	return ch.client.send(ctx, &Frame{Op: OpSubscribe, Topic: ch.topic})
}

// Send broadcasts payload to every other subscriber of the topic.
func (ch *Channel) Send(ctx context.Context, kind Kind, payload Payload) error {
	raw, err := EncodePayload(ch.client.codec, payload)
	if err != nil {
		return err
	}
	return ch.client.send(ctx, &Frame{
		Op:      OpBroadcast,
		Topic:   ch.topic,
		Event:   string(kind),
		Payload: raw,
	})
}

// Unsubscribe leaves the topic. Calling it again, or after the connection
// is gone, is a no-op.
func (ch *Channel) Unsubscribe() error {
	var err error
	ch.unsubOnce.Do(func() {
		close(ch.unsubscribed)
		ch.client.forget(ch)

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		err = ch.client.send(ctx, &Frame{Op: OpUnsubscribe, Topic: ch.topic})
		if errors.Is(err, ErrClientClosed) {
			err = nil
		}
	})
	return err
}

// deliver runs on the client's read pump.
func (ch *Channel) deliver(f *Frame) {
	var ev Event

	switch f.Op {
	case OpStatus:
		if f.Status == StatusSubscribed {
			ch.subscribed.Store(true)
		}
		ev = Event{Status: f.Status}

	case OpBroadcast:
		if !ch.subscribed.Load() {
			ch.client.log.Debug("broadcast before subscription confirmed", "topic", ch.topic)
			return
		}
		payload, err := DecodePayload(ch.client.codec, f.Payload)
		if err != nil {
			ch.client.log.Debug("dropping undecodable payload", "topic", ch.topic, "event", f.Event, "err", err)
			return
		}
		ev = Event{Message: &Message{Kind: Kind(f.Event), Payload: payload}}

	case OpError:
		ch.client.log.Warn("relay rejected request", "topic", ch.topic, "err", f.Error)
		ev = Event{Status: StatusChannelError}

	default:
		return
	}

	select {
	case ch.events <- ev:
	case <-ch.unsubscribed:
	case <-ch.client.done:
	}
}

func (ch *Channel) closeEvents() {
	ch.closeOnce.Do(func() {
		close(ch.events)
	})
}
