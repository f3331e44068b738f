package viewer

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

// Negotiator answers participant offers and relays ICE candidates in both
// directions. The spectator never originates an offer.
//
// Compatibility policy for senders that predate participant ids:
//   - an offer without participantId is filed under an id derived from the
//     current time in Unix milliseconds;
//   - a remote candidate without participantId goes to the most recently
//     created connection.
type Negotiator struct {
	registry   *Registry
	token      string
	send       func(ctx context.Context, kind signaling.Kind, payload signaling.Payload) error
	now        func() time.Time
	maxPending int
	log        *slog.Logger
}

// HandleOffer applies a remote offer and publishes the answer. Failures are
// logged; the next offer from the participant is the retry.
func (n *Negotiator) HandleOffer(ctx context.Context, payload signaling.Payload) {
	offer, err := offerFrom(payload)
	if err != nil {
		n.log.Warn("ignoring offer", "participant", payload.ParticipantID, "err", err)
		return
	}

	id := payload.ParticipantID
	if id == "" {
		id = strconv.FormatInt(n.now().UnixMilli(), 10)
		n.log.Debug("offer without participant id", "assigned", id)
	}

	p, err := n.registry.GetOrCreate(id)
	if err != nil {
		n.log.Error("create connection for offer", "participant", id, "err", err)
		return
	}

	state := p.Conn.SignalingState()
	if state != webrtc.SignalingStateStable && state != webrtc.SignalingStateHaveLocalOffer {
		n.log.Warn("ignoring offer while negotiation in flight", "participant", id, "state", state.String())
		return
	}

	if err := n.answer(ctx, p, offer, state); err != nil {
		n.log.Error("answer offer", "participant", id, "err", err)
	}
}

func offerFrom(payload signaling.Payload) (webrtc.SessionDescription, error) {
	if payload.Offer == nil {
		return webrtc.SessionDescription{}, ErrNoDescription
	}
	offer, err := payload.Offer.ToPion()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if offer.Type != webrtc.SDPTypeOffer {
		return webrtc.SessionDescription{}, ErrNotAnOffer
	}
	return offer, nil
}

func (n *Negotiator) answer(ctx context.Context, p *Participant, offer webrtc.SessionDescription, state webrtc.SignalingState) error {
	// Glare: drop our pending local offer in favour of the remote one.
	if state == webrtc.SignalingStateHaveLocalOffer {
		if err := p.Conn.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback}); err != nil {
			return NewParticipantError("rollback local offer", p.ID, err)
		}
		n.log.Debug("rolled back local offer", "participant", p.ID)
	}

	if err := p.Conn.SetRemoteDescription(offer); err != nil {
		return NewParticipantError("set remote description", p.ID, err)
	}
	n.flushPending(p)

	answer, err := p.Conn.CreateAnswer(nil)
	if err != nil {
		return NewParticipantError("create answer", p.ID, err)
	}
	if err := p.Conn.SetLocalDescription(answer); err != nil {
		return NewParticipantError("set local description", p.ID, err)
	}

	if p.Conn.ConnectionState() == webrtc.PeerConnectionStateClosed {
		return NewParticipantError("send answer", p.ID, ErrConnectionClosed)
	}
	if local := p.Conn.LocalDescription(); local != nil {
		answer = *local
	}

	err = n.send(ctx, signaling.KindSpectatorAnswer, signaling.Payload{
		ParticipantID: p.ID,
		Token:         n.token,
		Answer:        signaling.DescriptionFromPion(answer),
	})
	if err != nil {
		return NewParticipantError("send answer", p.ID, err)
	}
	n.log.Debug("answer sent", "participant", p.ID)
	return nil
}

// HandleRemoteCandidate applies a participant's ICE candidate. Candidates that
// arrive before the offer are queued, up to maxPending per participant.
func (n *Negotiator) HandleRemoteCandidate(payload signaling.Payload) {
	if payload.Candidate == nil {
		n.log.Debug("ICE message without candidate", "participant", payload.ParticipantID)
		return
	}

	p := n.candidateTarget(payload.ParticipantID)
	if p == nil {
		n.log.Debug("no connection for ICE candidate, dropping", "participant", payload.ParticipantID)
		return
	}

	candidate := payload.Candidate.ToPion()
	if p.Conn.RemoteDescription() == nil {
		if len(p.pending) >= n.maxPending {
			n.log.Warn("pending ICE queue full, dropping candidate", "participant", p.ID, "queued", len(p.pending))
			return
		}
		p.pending = append(p.pending, candidate)
		n.log.Debug("queued ICE candidate until offer arrives", "participant", p.ID, "queued", len(p.pending))
		return
	}

	if err := p.Conn.AddICECandidate(candidate); err != nil {
		n.log.Warn("add ICE candidate", "participant", p.ID, "err", err)
	}
}

func (n *Negotiator) candidateTarget(id string) *Participant {
	if id == "" {
		p, _ := n.registry.Latest()
		return p
	}
	p, err := n.registry.GetOrCreate(id)
	if err != nil {
		n.log.Error("create connection for ICE candidate", "participant", id, "err", err)
		return nil
	}
	return p
}

func (n *Negotiator) flushPending(p *Participant) {
	pending := p.pending
	p.pending = nil
	for _, c := range pending {
		if err := p.Conn.AddICECandidate(c); err != nil {
			n.log.Warn("add queued ICE candidate", "participant", p.ID, "err", err)
		}
	}
	if len(pending) > 0 {
		n.log.Debug("applied queued ICE candidates", "participant", p.ID, "count", len(pending))
	}
}

// ForwardLocalCandidate publishes a locally gathered candidate to the participant.
func (n *Negotiator) ForwardLocalCandidate(ctx context.Context, participantID string, c webrtc.ICECandidateInit) {
	err := n.send(ctx, signaling.KindSpectatorICE, signaling.Payload{
		ParticipantID: participantID,
		Token:         n.token,
		Candidate:     signaling.CandidateFromPion(c),
	})
	if err != nil {
		n.log.Warn("send ICE candidate", "participant", participantID, "err", err)
	}
}
