package lobby

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

// Publisher is the subset of a signaling channel the announcer writes to.
type Publisher interface {
	Subscribe(ctx context.Context) error
	Events() <-chan signaling.Event
	Send(ctx context.Context, kind signaling.Kind, payload signaling.Payload) error
	Unsubscribe() error
}

// Announcer keeps a room listed by broadcasting room-active on an interval
// shorter than the liveness window.
type Announcer struct {
	channel  Publisher
	code     string
	interval time.Duration
	clock    clock.Clock
	log      *slog.Logger
}

// NewAnnouncer creates an announcer for room code. A zero interval uses SweepInterval.
func NewAnnouncer(ch Publisher, code string, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Announcer {
	if interval <= 0 {
		interval = SweepInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Announcer{
		channel:  ch,
		code:     code,
		interval: interval,
		clock:    clk,
		log:      logger.With("component", "announcer", "room", code),
	}
}

// Run announces once the subscription is confirmed and then every interval
// until ctx is cancelled.
func (a *Announcer) Run(ctx context.Context) error {
	if err := a.channel.Subscribe(ctx); err != nil {
		return err
	}
	defer a.channel.Unsubscribe()

	events := a.channel.Events()
	for subscribed := false; !subscribed; {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return ErrChannelClosed
			}
			subscribed = ev.Status == signaling.StatusSubscribed
		}
	}

	ticker := a.clock.Ticker(a.interval)
	defer ticker.Stop()

	a.announce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return ErrChannelClosed
			}
		case <-ticker.C:
			a.announce(ctx)
		}
	}
}

func (a *Announcer) announce(ctx context.Context) {
	payload := signaling.Payload{RoomCode: a.code, Timestamp: a.clock.Now().UnixMilli()}
	if err := a.channel.Send(ctx, signaling.KindRoomActive, payload); err != nil {
		a.log.Warn("announce failed", "err", err)
		return
	}
	a.log.Debug("announced")
}
