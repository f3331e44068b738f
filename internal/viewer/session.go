package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pion/webrtc/v4"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

const (
	// DefaultWaitingTimeout is how long a session waits for media before
	// telling the user it is still waiting.
	DefaultWaitingTimeout = 30 * time.Second

	// DefaultMaxPendingCandidates bounds the per-participant queue of remote
	// candidates received before the offer.
	DefaultMaxPendingCandidates = 64

	eventBuffer = 128
)

// JoinParams are the two values a spectator link carries.
type JoinParams struct {
	RoomCode string
	Token    string
}

// Validate reports which required parameter is missing.
func (p JoinParams) Validate() error {
	if p.RoomCode == "" {
		return ErrMissingRoomCode
	}
	if p.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Deps are the collaborators a session is built from.
type Deps struct {
	// OpenChannel returns the channel for a room topic.
	OpenChannel func(topic string) Channel
	// NewConnection builds the connection for a participant.
	NewConnection ConnectionFactory
	View          View
	Clock         clock.Clock
	Logger        *slog.Logger
}

// Options tune a session. Zero values select the defaults.
type Options struct {
	WaitingTimeout       time.Duration
	MaxPendingCandidates int
}

func (o Options) withDefaults() Options {
	if o.WaitingTimeout <= 0 {
		o.WaitingTimeout = DefaultWaitingTimeout
	}
	if o.MaxPendingCandidates <= 0 {
		o.MaxPendingCandidates = DefaultMaxPendingCandidates
	}
	return o
}

// Session is one spectator watching one room. Every signaling message,
// connection callback and timer is funnelled into a single dispatch goroutine,
// so the registry, slots and negotiator need no locking.
type Session struct {
	params  JoinParams
	opts    Options
	channel Channel
	view    View
	clock   clock.Clock
	log     *slog.Logger

	registry   *Registry
	slots      *SlotAllocator
	negotiator *Negotiator

	events  chan event
	waiting *clock.Timer

	subscribed bool
	mediaShown bool

	leave     chan struct{}
	leaveOnce sync.Once
	done      chan struct{}
	finished  chan struct{}

	state atomic.Pointer[State]
}

type event interface{}

type trackEvent struct {
	participantID string
	streamID      string
	track         *webrtc.TrackRemote
}

type localCandidateEvent struct {
	participantID string
	candidate     webrtc.ICECandidateInit
}

type connectionStateEvent struct {
	participantID string
	state         webrtc.PeerConnectionState
}

type waitingExpiredEvent struct{}

// Join validates params, subscribes to the room topic and starts the session.
// Missing parameters are reported to the view and returned without any
// connection attempt.
func Join(ctx context.Context, params JoinParams, deps Deps, opts Options) (*Session, error) {
	if err := params.Validate(); err != nil {
		if deps.View != nil {
			deps.View.SetStatus("Invalid link")
			deps.View.Notify("No room specified", LevelError)
		}
		return nil, NewError("join", err)
	}

	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	opts = opts.withDefaults()
	logger := deps.Logger.With("room", params.RoomCode)

	s := &Session{
		params:   params,
		opts:     opts,
		view:     deps.View,
		clock:    deps.Clock,
		log:      logger,
		slots:    NewSlotAllocator(SlotCount),
		events:   make(chan event, eventBuffer),
		leave:    make(chan struct{}),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	s.registry = NewRegistry(deps.NewConnection, s.callbacks, logger)
	s.negotiator = &Negotiator{
		registry:   s.registry,
		token:      params.Token,
		send:       s.send,
		now:        s.clock.Now,
		maxPending: opts.MaxPendingCandidates,
		log:        logger,
	}

	s.view.SetStatus(fmt.Sprintf("Connecting to room %s...", params.RoomCode))
	s.view.SetWaiting(true)

	s.channel = deps.OpenChannel(signaling.RoomTopic(params.RoomCode))
	if err := s.channel.Subscribe(ctx); err != nil {
		s.view.SetStatus("Connection failed")
		s.view.Notify("Could not reach the signaling relay", LevelError)
		s.view.Release()
		return nil, NewError("subscribe", err)
	}

	s.waiting = s.clock.AfterFunc(opts.WaitingTimeout, func() {
		s.post(waitingExpiredEvent{})
	})
	s.publishState(false)

	go s.run(ctx)

	logger.Info("joined room", "topic", s.channel.Topic())
	return s, nil
}

// Leave tears the session down and waits for it to finish. It is safe to
// call more than once and after the session ended on its own.
func (s *Session) Leave() {
	s.leaveOnce.Do(func() {
		close(s.leave)
	})
	<-s.finished
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.finished
}

// State returns the latest published snapshot.
func (s *Session) State() State {
	return *s.state.Load()
}

func (s *Session) callbacks(participantID string) Callbacks {
	return Callbacks{
		OnTrack: func(streamID string, track *webrtc.TrackRemote) {
			s.post(trackEvent{participantID: participantID, streamID: streamID, track: track})
		},
		OnICECandidate: func(c webrtc.ICECandidateInit) {
			s.post(localCandidateEvent{participantID: participantID, candidate: c})
		},
		OnConnectionStateChange: func(state webrtc.PeerConnectionState) {
			s.post(connectionStateEvent{participantID: participantID, state: state})
		},
	}
}

// post hands an event to the dispatch goroutine. Events posted after
// teardown has started are discarded.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) send(ctx context.Context, kind signaling.Kind, payload signaling.Payload) error {
	return s.channel.Send(ctx, kind, payload)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.finished)
	defer s.teardown()

	channelEvents := s.channel.Events()
	for {
		select {
		case <-ctx.Done():
			return

		case <-s.leave:
			return

		case ev, ok := <-channelEvents:
			if !ok {
				s.log.Warn("signaling channel closed")
				s.view.SetStatus(fmt.Sprintf("Room %s - signaling lost", s.params.RoomCode))
				s.view.Notify("Lost connection to the signaling relay", LevelError)
				return
			}
			s.handleSignal(ctx, ev)

		case ev := <-s.events:
			s.handleEvent(ctx, ev)
		}

		s.publishState(false)
	}
}

func (s *Session) handleSignal(ctx context.Context, ev signaling.Event) {
	if ev.IsStatus() {
		s.handleStatus(ctx, ev.Status)
		return
	}

	msg := ev.Message
	switch msg.Kind {
	case signaling.KindOffer:
		s.negotiator.HandleOffer(ctx, msg.Payload)

	case signaling.KindParticipantICE:
		s.negotiator.HandleRemoteCandidate(msg.Payload)

	default:
		s.log.Debug("ignoring message", "kind", msg.Kind)
	}
}

func (s *Session) handleStatus(ctx context.Context, status signaling.Status) {
	switch status {
	case signaling.StatusSubscribed:
		if s.subscribed {
			return
		}
		s.subscribed = true
		s.log.Debug("subscribed, announcing readiness")

		if err := s.channel.Send(ctx, signaling.KindSpectatorReady, signaling.Payload{Token: s.params.Token}); err != nil {
			s.log.Error("send ready", "err", err)
			s.view.Notify("Could not announce to the room", LevelWarning)
			return
		}
		s.view.SetStatus(fmt.Sprintf("Room %s - waiting for participants", s.params.RoomCode))

	case signaling.StatusChannelError:
		s.log.Warn("signaling channel error")
		s.view.Notify("Signaling relay reported an error", LevelWarning)

	default:
		s.log.Debug("channel status", "status", status)
	}
}

func (s *Session) handleEvent(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case trackEvent:
		s.handleTrack(ev)

	case localCandidateEvent:
		if _, ok := s.registry.Get(ev.participantID); !ok {
			return
		}
		s.negotiator.ForwardLocalCandidate(ctx, ev.participantID, ev.candidate)

	case connectionStateEvent:
		s.handleConnectionState(ev)

	case waitingExpiredEvent:
		if !s.mediaShown {
			s.view.Notify("Still waiting for the stream. The participants may not be sharing yet.", LevelWarning)
		}
	}
}

func (s *Session) handleTrack(ev trackEvent) {
	p, ok := s.registry.Get(ev.participantID)
	if !ok {
		s.log.Debug("track for unknown participant", "participant", ev.participantID)
		return
	}

	stream := p.attachTrack(ev.streamID, ev.track)
	slot, ok := s.slots.OnTrackReceived(p.ID, stream)
	if !ok {
		s.log.Warn("no free display slot, dropping stream", "participant", p.ID, "stream", ev.streamID)
		return
	}

	s.view.AttachStream(slot, stream)
	s.log.Debug("stream attached", "participant", p.ID, "slot", slot, "tracks", len(stream.Tracks))

	if !s.mediaShown {
		s.mediaShown = true
		s.waiting.Stop()
		s.view.SetWaiting(false)
	}
}

func (s *Session) handleConnectionState(ev connectionStateEvent) {
	p, ok := s.registry.Get(ev.participantID)
	if !ok {
		return
	}
	p.state = ev.state

	s.view.SetStatus(fmt.Sprintf("Room %s - %s", s.params.RoomCode, ev.state))

	switch ev.state {
	case webrtc.PeerConnectionStateConnected:
		s.log.Info("participant connected", "participant", p.ID)
	case webrtc.PeerConnectionStateDisconnected:
		s.log.Warn("participant disconnected", "participant", p.ID)
	case webrtc.PeerConnectionStateFailed:
		s.log.Error("participant connection failed", "participant", p.ID)
		s.view.SetWaiting(false)
		s.view.Notify("Connection to a participant failed. Rejoin to retry.", LevelError)
	}
}

func (s *Session) teardown() {
	close(s.done)
	s.waiting.Stop()

	for _, p := range s.registry.All() {
		s.slots.Release(p.ID)
		if err := s.registry.Remove(p.ID); err != nil {
			s.log.Warn("teardown", "err", err)
		}
	}

	if err := s.channel.Unsubscribe(); err != nil {
		s.log.Warn("unsubscribe", "err", err)
	}
	s.view.Release()
	s.publishState(true)

	s.log.Info("left room")
}
