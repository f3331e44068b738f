package viewer

import (
	"log/slog"
	"sort"

	"github.com/pion/webrtc/v4"
)

// Participant is one remote sender and the connection negotiated with it.
type Participant struct {
	ID   string
	Conn PeerConnection

	seq     uint64
	pending []webrtc.ICECandidateInit
	stream  *Stream
	state   webrtc.PeerConnectionState
}

// PendingCandidates returns how many remote candidates are queued.
func (p *Participant) PendingCandidates() int {
	return len(p.pending)
}

// attachTrack folds track into the participant's current stream, starting a
// new stream when the stream id changes.
func (p *Participant) attachTrack(streamID string, track *webrtc.TrackRemote) *Stream {
	if p.stream == nil || p.stream.ID != streamID {
		p.stream = &Stream{ID: streamID, ParticipantID: p.ID}
	}
	p.stream = p.stream.withTrack(track)
	return p.stream
}

// Registry maps participant ids to their connections. At most one connection
// exists per id.
//
// Registry is owned by a session's dispatch goroutine and is not safe for
// concurrent use.
type Registry struct {
	newConnection ConnectionFactory
	callbacks     func(participantID string) Callbacks
	entries       map[string]*Participant
	seq           uint64
	log           *slog.Logger
}

// NewRegistry creates an empty registry. callbacks is asked for the hooks to
// wire into each new connection.
func NewRegistry(factory ConnectionFactory, callbacks func(participantID string) Callbacks, logger *slog.Logger) *Registry {
	if callbacks == nil {
		callbacks = func(string) Callbacks { return Callbacks{} }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		newConnection: factory,
		callbacks:     callbacks,
		entries:       make(map[string]*Participant),
		log:           logger,
	}
}

// GetOrCreate returns the participant for id, building its connection on
// first use.
func (r *Registry) GetOrCreate(id string) (*Participant, error) {
	if p, ok := r.entries[id]; ok {
		return p, nil
	}

	conn, err := r.newConnection(id, r.callbacks(id))
	if err != nil {
		return nil, err
	}

	r.seq++
	p := &Participant{ID: id, Conn: conn, seq: r.seq, state: webrtc.PeerConnectionStateNew}
	r.entries[id] = p
	r.log.Debug("participant connection created", "participant", id)
	return p, nil
}

// Get returns the participant for id if one exists.
func (r *Registry) Get(id string) (*Participant, bool) {
	p, ok := r.entries[id]
	return p, ok
}

// Latest returns the most recently created participant.
func (r *Registry) Latest() (*Participant, bool) {
	var latest *Participant
	for _, p := range r.entries {
		if latest == nil || p.seq > latest.seq {
			latest = p
		}
	}
	return latest, latest != nil
}

// Remove closes the participant's connection and forgets it. Removing an
// unknown id is a no-op.
func (r *Registry) Remove(id string) error {
	p, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)
	p.pending = nil

	if err := p.Conn.Close(); err != nil {
		return NewParticipantError("close peer connection", id, err)
	}
	r.log.Debug("participant connection closed", "participant", id)
	return nil
}

// All returns the participants in creation order.
func (r *Registry) All() []*Participant {
	out := make([]*Participant, 0, len(r.entries))
	for _, p := range r.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len returns the number of live participants.
func (r *Registry) Len() int {
	return len(r.entries)
}
