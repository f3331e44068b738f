package signaling

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Kind is the event name carried by a broadcast frame.
type Kind string

// Broadcast event kinds exchanged on room and lobby topics.
const (
	KindOffer           Kind = "offer"
	KindParticipantICE  Kind = "participant-ice"
	KindSpectatorICE    Kind = "spectator-ice"
	KindSpectatorAnswer Kind = "spectator-answer"
	KindSpectatorReady  Kind = "spectator-ready"
	KindRoomActive      Kind = "room-active"
)

// Status is a lifecycle notification for a subscribed topic.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusClosed       Status = "CLOSED"
	StatusChannelError Status = "CHANNEL_ERROR"
)

// LobbyTopic carries room-active announcements.
const LobbyTopic = "lobby-broadcast"

const roomTopicPrefix = "room-"

// RoomTopic returns the signaling topic for a room code.
func RoomTopic(code string) string {
	return roomTopicPrefix + code
}

// SessionDescription is the wire form of an SDP offer or answer.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// DescriptionFromPion converts a pion description to its wire form.
func DescriptionFromPion(d webrtc.SessionDescription) *SessionDescription {
	return &SessionDescription{Type: d.Type.String(), SDP: d.SDP}
}

// ToPion converts the wire description back into a pion description.
func (d *SessionDescription) ToPion() (webrtc.SessionDescription, error) {
	t := webrtc.NewSDPType(d.Type)
	if t == webrtc.SDPTypeUnknown {
		return webrtc.SessionDescription{}, fmt.Errorf("unknown sdp type %q", d.Type)
	}
	return webrtc.SessionDescription{Type: t, SDP: d.SDP}, nil
}

// ICECandidate is the wire form of a trickled ICE candidate.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// CandidateFromPion converts a pion candidate init to its wire form.
func CandidateFromPion(c webrtc.ICECandidateInit) *ICECandidate {
	return &ICECandidate{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

// ToPion converts the wire candidate back into a pion candidate init.
func (c *ICECandidate) ToPion() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
}

// Payload is the body of every broadcast. Fields are set depending on Kind.
type Payload struct {
	ParticipantID string              `json:"participantId,omitempty"`
	Token         string              `json:"token,omitempty"`
	Offer         *SessionDescription `json:"offer,omitempty"`
	Answer        *SessionDescription `json:"answer,omitempty"`
	Candidate     *ICECandidate       `json:"candidate,omitempty"`
	RoomCode      string              `json:"room_code,omitempty"`
	Timestamp     int64               `json:"timestamp,omitempty"`
}

// Message is a decoded broadcast received on a channel.
type Message struct {
	Kind    Kind
	Payload Payload
}

// Event is delivered on a channel's event stream. Exactly one of Status or
// Message is set.
type Event struct {
	Status  Status
	Message *Message
}

// IsStatus reports whether the event is a lifecycle notification.
func (e Event) IsStatus() bool {
	return e.Message == nil
}
