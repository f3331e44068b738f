package viewer

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

type sentMessage struct {
	Kind    signaling.Kind
	Payload signaling.Payload
}

type fakeChannel struct {
	topic  string
	events chan signaling.Event

	mu           sync.Mutex
	sent         []sentMessage
	subscribes   int
	unsubscribes int
	subscribeErr error
}

func newFakeChannel(topic string) *fakeChannel {
	return &fakeChannel{topic: topic, events: make(chan signaling.Event, 32)}
}

func (c *fakeChannel) Topic() string                  { return c.topic }
func (c *fakeChannel) Events() <-chan signaling.Event { return c.events }

func (c *fakeChannel) Subscribe(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribes++
	return c.subscribeErr
}

func (c *fakeChannel) Send(_ context.Context, kind signaling.Kind, payload signaling.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{Kind: kind, Payload: payload})
	return nil
}

func (c *fakeChannel) Unsubscribe() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribes++
	return nil
}

func (c *fakeChannel) sentOf(kind signaling.Kind) []signaling.Payload {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []signaling.Payload
	for _, m := range c.sent {
		if m.Kind == kind {
			out = append(out, m.Payload)
		}
	}
	return out
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeChannel) unsubscribeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unsubscribes
}

func (c *fakeChannel) push(kind signaling.Kind, payload signaling.Payload) {
	c.events <- signaling.Event{Message: &signaling.Message{Kind: kind, Payload: payload}}
}

func (c *fakeChannel) pushStatus(status signaling.Status) {
	c.events <- signaling.Event{Status: status}
}

var errInjected = errors.New("injected failure")

// fakePeer models the signaling state transitions of a peer connection.
type fakePeer struct {
	mu           sync.Mutex
	signaling    webrtc.SignalingState
	connection   webrtc.PeerConnectionState
	remote       *webrtc.SessionDescription
	local        *webrtc.SessionDescription
	calls        []string
	candidates   []webrtc.ICECandidateInit
	closes       int
	setRemoteErr error
	addICEErr    error
}

func (p *fakePeer) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePeer) SignalingState() webrtc.SignalingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signaling
}

func (p *fakePeer) ConnectionState() webrtc.PeerConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connection
}

func (p *fakePeer) RemoteDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote
}

func (p *fakePeer) LocalDescription() *webrtc.SessionDescription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("set-remote")
	if p.setRemoteErr != nil {
		return p.setRemoteErr
	}
	p.remote = &desc
	p.signaling = webrtc.SignalingStateHaveRemoteOffer
	return nil
}

func (p *fakePeer) SetLocalDescription(desc webrtc.SessionDescription) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if desc.Type == webrtc.SDPTypeRollback {
		p.record("rollback")
		p.local = nil
		p.signaling = webrtc.SignalingStateStable
		return nil
	}
	p.record("set-local")
	p.local = &desc
	p.signaling = webrtc.SignalingStateStable
	return nil
}

func (p *fakePeer) CreateAnswer(*webrtc.AnswerOptions) (webrtc.SessionDescription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("create-answer")
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("add-candidate")
	if p.addICEErr != nil {
		return p.addICEErr
	}
	p.candidates = append(p.candidates, c)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	p.connection = webrtc.PeerConnectionStateClosed
	return nil
}

func (p *fakePeer) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePeer) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes
}

type fakeFactory struct {
	mu        sync.Mutex
	initial   webrtc.SignalingState
	configure func(*fakePeer)
	peers     map[string]*fakePeer
	callbacks map[string]Callbacks
	created   []string
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		initial:   webrtc.SignalingStateStable,
		peers:     make(map[string]*fakePeer),
		callbacks: make(map[string]Callbacks),
	}
}

func (f *fakeFactory) New(participantID string, cb Callbacks) (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &fakePeer{signaling: f.initial, connection: webrtc.PeerConnectionStateNew}
	if f.configure != nil {
		f.configure(p)
	}
	f.peers[participantID] = p
	f.callbacks[participantID] = cb
	f.created = append(f.created, participantID)
	return p, nil
}

func (f *fakeFactory) peer(id string) *fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peers[id]
}

func (f *fakeFactory) callbacksFor(id string) Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callbacks[id]
}

func (f *fakeFactory) createdIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

type notice struct {
	Message string
	Level   Level
}

type attachment struct {
	Slot   int
	Stream *Stream
}

type fakeView struct {
	mu       sync.Mutex
	statuses []string
	notices  []notice
	waiting  []bool
	attached []attachment
	releases int
}

func (v *fakeView) SetStatus(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.statuses = append(v.statuses, text)
}

func (v *fakeView) Notify(message string, level Level) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, notice{Message: message, Level: level})
}

func (v *fakeView) SetWaiting(waiting bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.waiting = append(v.waiting, waiting)
}

func (v *fakeView) AttachStream(slot int, stream *Stream) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = append(v.attached, attachment{Slot: slot, Stream: stream})
}

func (v *fakeView) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.releases++
}

func (v *fakeView) lastStatus() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.statuses) == 0 {
		return ""
	}
	return v.statuses[len(v.statuses)-1]
}

func (v *fakeView) noticesAt(level Level) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, n := range v.notices {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

func (v *fakeView) attachments() []attachment {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]attachment(nil), v.attached...)
}

func (v *fakeView) lastWaiting() (bool, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.waiting) == 0 {
		return false, false
	}
	return v.waiting[len(v.waiting)-1], true
}

func (v *fakeView) releaseCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.releases
}
