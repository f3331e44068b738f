package viewer

import (
	"github.com/pion/webrtc/v4"
)

// ParticipantState describes one participant connection at snapshot time.
type ParticipantState struct {
	ID                string
	Signaling         webrtc.SignalingState
	Connection        webrtc.PeerConnectionState
	PendingCandidates int
	StreamID          string
}

// State is a point-in-time copy of a session, safe to read from any goroutine.
type State struct {
	RoomCode     string
	Subscribed   bool
	MediaShown   bool
	Ended        bool
	Participants []ParticipantState
	Slots        []Slot
}

// publishState runs on the dispatch goroutine.
func (s *Session) publishState(ended bool) {
	st := &State{
		RoomCode:   s.params.RoomCode,
		Subscribed: s.subscribed,
		MediaShown: s.mediaShown,
		Ended:      ended,
		Slots:      s.slots.Slots(),
	}
	for _, p := range s.registry.All() {
		ps := ParticipantState{
			ID:                p.ID,
			Signaling:         p.Conn.SignalingState(),
			Connection:        p.state,
			PendingCandidates: p.PendingCandidates(),
		}
		if p.stream != nil {
			ps.StreamID = p.stream.ID
		}
		st.Participants = append(st.Participants, ps)
	}
	s.state.Store(st)
}
