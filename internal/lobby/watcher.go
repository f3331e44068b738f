package lobby

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

// ErrChannelClosed is returned by Run when the lobby subscription ends.
var ErrChannelClosed = errors.New("lobby channel closed")

// View renders the room list.
type View interface {
	RenderRooms(rooms []Room, now time.Time)
}

// Channel is the subset of a signaling channel the watcher reads from.
type Channel interface {
	Subscribe(ctx context.Context) error
	Events() <-chan signaling.Event
	Unsubscribe() error
}

// WatcherOptions tune the watcher. Zero values select the defaults.
type WatcherOptions struct {
	Window        time.Duration
	SweepInterval time.Duration
	Clock         clock.Clock
	Logger        *slog.Logger
}

// Watcher keeps a Directory current from lobby announcements and pushes every
// change to the view.
type Watcher struct {
	channel  Channel
	view     View
	dir      *Directory
	clock    clock.Clock
	interval time.Duration
	log      *slog.Logger

	refresh chan struct{}
}

// NewWatcher creates a watcher reading announcements from ch.
func NewWatcher(ch Channel, view View, opts WatcherOptions) *Watcher {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = SweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		channel:  ch,
		view:     view,
		dir:      NewDirectory(opts.Window),
		clock:    opts.Clock,
		interval: opts.SweepInterval,
		log:      opts.Logger.With("component", "lobby"),
		refresh:  make(chan struct{}, 1),
	}
}

// Refresh asks the watcher to sweep and re-render. It never blocks.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// Run subscribes to the lobby topic and processes announcements until ctx is
// cancelled or the channel closes.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.channel.Subscribe(ctx); err != nil {
		return err
	}
	defer w.channel.Unsubscribe()

	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	w.render()

	events := w.channel.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return ErrChannelClosed
			}
			w.handle(ev)

		case <-ticker.C:
			if w.dir.Sweep(w.clock.Now()) > 0 {
				w.render()
			}

		case <-w.refresh:
			w.dir.Sweep(w.clock.Now())
			w.render()
		}
	}
}

func (w *Watcher) handle(ev signaling.Event) {
	if ev.IsStatus() {
		w.log.Debug("lobby channel status", "status", ev.Status)
		return
	}
	if ev.Message.Kind != signaling.KindRoomActive {
		return
	}

	p := ev.Message.Payload
	if !w.dir.Observe(Announcement{RoomCode: p.RoomCode, Timestamp: p.Timestamp}) {
		w.log.Debug("dropping malformed announcement", "room", p.RoomCode, "timestamp", p.Timestamp)
		return
	}
	w.render()
}

func (w *Watcher) render() {
	w.view.RenderRooms(w.dir.Snapshot(), w.clock.Now())
}
