package viewer

import (
	"context"

	"github.com/pion/webrtc/v4"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

// Channel is the room topic subscription a session signals over.
type Channel interface {
	Topic() string
	Subscribe(ctx context.Context) error
	Events() <-chan signaling.Event
	Send(ctx context.Context, kind signaling.Kind, payload signaling.Payload) error
	Unsubscribe() error
}

// PeerConnection is the part of *webrtc.PeerConnection a session drives.
type PeerConnection interface {
	SignalingState() webrtc.SignalingState
	ConnectionState() webrtc.PeerConnectionState
	RemoteDescription() *webrtc.SessionDescription
	LocalDescription() *webrtc.SessionDescription
	SetRemoteDescription(desc webrtc.SessionDescription) error
	SetLocalDescription(desc webrtc.SessionDescription) error
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	Close() error
}

var _ PeerConnection = (*webrtc.PeerConnection)(nil)

// Callbacks are invoked by a connection from its own goroutines.
type Callbacks struct {
	OnTrack                 func(streamID string, track *webrtc.TrackRemote)
	OnICECandidate          func(candidate webrtc.ICECandidateInit)
	OnConnectionStateChange func(state webrtc.PeerConnectionState)
}

// ConnectionFactory builds the connection for a participant and wires cb into it.
type ConnectionFactory func(participantID string, cb Callbacks) (PeerConnection, error)

// PionFactory adapts a pion constructor into a ConnectionFactory.
func PionFactory(newPeerConnection func() (*webrtc.PeerConnection, error)) ConnectionFactory {
	return func(participantID string, cb Callbacks) (PeerConnection, error) {
		pc, err := newPeerConnection()
		if err != nil {
			return nil, NewParticipantError("create peer connection", participantID, err)
		}

		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			if cb.OnTrack != nil {
				cb.OnTrack(track.StreamID(), track)
			}
		})

		pc.OnICECandidate(func(c *webrtc.ICECandidate) {
			if c == nil || cb.OnICECandidate == nil {
				return
			}
			cb.OnICECandidate(c.ToJSON())
		})

		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			if cb.OnConnectionStateChange != nil {
				cb.OnConnectionStateChange(state)
			}
		})

		return pc, nil
	}
}
