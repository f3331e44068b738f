package viewer

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

var testLogger = slog.New(slog.DiscardHandler)

type negotiatorFixture struct {
	factory    *fakeFactory
	registry   *Registry
	channel    *fakeChannel
	negotiator *Negotiator
}

func newNegotiatorFixture(maxPending int) *negotiatorFixture {
	f := &negotiatorFixture{
		factory: newFakeFactory(),
		channel: newFakeChannel(signaling.RoomTopic("ABCD12")),
	}
	f.registry = NewRegistry(f.factory.New, nil, testLogger)
	f.negotiator = &Negotiator{
		registry:   f.registry,
		token:      "t1",
		send:       f.channel.Send,
		now:        func() time.Time { return time.UnixMilli(1700000000000) },
		maxPending: maxPending,
		log:        testLogger,
	}
	return f
}

func offerPayload(participantID string) signaling.Payload {
	return signaling.Payload{
		ParticipantID: participantID,
		Offer:         &signaling.SessionDescription{Type: "offer", SDP: "offer-sdp-" + participantID},
	}
}

func candidatePayload(participantID, candidate string) signaling.Payload {
	return signaling.Payload{
		ParticipantID: participantID,
		Candidate:     &signaling.ICECandidate{Candidate: candidate},
	}
}

func TestOfferProducesTaggedAnswer(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

	answers := f.channel.sentOf(signaling.KindSpectatorAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "p1", answers[0].ParticipantID)
	assert.Equal(t, "t1", answers[0].Token)
	require.NotNil(t, answers[0].Answer)
	assert.Equal(t, "answer", answers[0].Answer.Type)
	assert.Equal(t, "answer-sdp", answers[0].Answer.SDP)

	peer := f.factory.peer("p1")
	assert.Equal(t, []string{"set-remote", "create-answer", "set-local"}, peer.callLog())
	assert.Equal(t, "offer-sdp-p1", peer.RemoteDescription().SDP)
}

func TestOfferRollbackOnlyFromHaveLocalOffer(t *testing.T) {
	tests := []struct {
		name    string
		initial webrtc.SignalingState
		calls   []string
	}{
		{
			name:    "stable",
			initial: webrtc.SignalingStateStable,
			calls:   []string{"set-remote", "create-answer", "set-local"},
		},
		{
			name:    "have-local-offer",
			initial: webrtc.SignalingStateHaveLocalOffer,
			calls:   []string{"rollback", "set-remote", "create-answer", "set-local"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNegotiatorFixture(DefaultMaxPendingCandidates)
			f.factory.initial = tt.initial

			f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

			assert.Equal(t, tt.calls, f.factory.peer("p1").callLog())
			assert.Len(t, f.channel.sentOf(signaling.KindSpectatorAnswer), 1)
		})
	}
}

func TestRepeatedOfferReusesConnection(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))
	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

	assert.Equal(t, []string{"p1"}, f.factory.createdIDs())
	assert.Equal(t, []string{
		"set-remote", "create-answer", "set-local",
		"set-remote", "create-answer", "set-local",
	}, f.factory.peer("p1").callLog())
	assert.Len(t, f.channel.sentOf(signaling.KindSpectatorAnswer), 2)
}

func TestOfferIgnoredWhileNegotiationInFlight(t *testing.T) {
	for _, state := range []webrtc.SignalingState{
		webrtc.SignalingStateHaveRemoteOffer,
		webrtc.SignalingStateHaveLocalPranswer,
		webrtc.SignalingStateClosed,
	} {
		t.Run(state.String(), func(t *testing.T) {
			f := newNegotiatorFixture(DefaultMaxPendingCandidates)
			f.factory.initial = state

			f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

			assert.Empty(t, f.factory.peer("p1").callLog())
			assert.Zero(t, f.channel.sentCount())
		})
	}
}

func TestMalformedOfferIsIgnored(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleOffer(context.Background(), signaling.Payload{ParticipantID: "p1"})
	f.negotiator.HandleOffer(context.Background(), signaling.Payload{
		ParticipantID: "p1",
		Offer:         &signaling.SessionDescription{Type: "answer", SDP: "x"},
	})

	assert.Empty(t, f.factory.createdIDs())
	assert.Zero(t, f.channel.sentCount())
}

func TestOfferWithoutParticipantIDGetsTimestampID(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleOffer(context.Background(), offerPayload(""))

	assert.Equal(t, []string{"1700000000000"}, f.factory.createdIDs())
	answers := f.channel.sentOf(signaling.KindSpectatorAnswer)
	require.Len(t, answers, 1)
	assert.Equal(t, "1700000000000", answers[0].ParticipantID)
}

func TestFailedRemoteDescriptionSendsNoAnswer(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)
	f.factory.configure = func(p *fakePeer) { p.setRemoteErr = errInjected }

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

	assert.Equal(t, []string{"set-remote"}, f.factory.peer("p1").callLog())
	assert.Zero(t, f.channel.sentCount())
}

func TestCandidateBeforeOfferIsQueued(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleRemoteCandidate(candidatePayload("p1", "candidate:a"))
	f.negotiator.HandleRemoteCandidate(candidatePayload("p1", "candidate:b"))

	p, ok := f.registry.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 2, p.PendingCandidates())
	assert.Empty(t, f.factory.peer("p1").callLog())

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

	peer := f.factory.peer("p1")
	assert.Equal(t, []string{"set-remote", "add-candidate", "add-candidate", "create-answer", "set-local"}, peer.callLog())
	assert.Zero(t, p.PendingCandidates())
	require.Len(t, peer.candidates, 2)
	assert.Equal(t, "candidate:a", peer.candidates[0].Candidate)
	assert.Equal(t, "candidate:b", peer.candidates[1].Candidate)
}

func TestPendingCandidateQueueIsBounded(t *testing.T) {
	f := newNegotiatorFixture(2)

	for _, c := range []string{"candidate:a", "candidate:b", "candidate:c"} {
		f.negotiator.HandleRemoteCandidate(candidatePayload("p1", c))
	}

	p, ok := f.registry.Get("p1")
	require.True(t, ok)
	assert.Equal(t, 2, p.PendingCandidates())
}

func TestCandidateAfterOfferIsApplied(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))
	f.negotiator.HandleRemoteCandidate(candidatePayload("p1", "candidate:a"))

	peer := f.factory.peer("p1")
	require.Len(t, peer.candidates, 1)
	assert.Equal(t, "candidate:a", peer.candidates[0].Candidate)
}

func TestCandidateWithoutIDGoesToLatestConnection(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))
	f.negotiator.HandleOffer(context.Background(), offerPayload("p2"))
	f.negotiator.HandleRemoteCandidate(candidatePayload("", "candidate:a"))

	assert.Empty(t, f.factory.peer("p1").candidates)
	assert.Len(t, f.factory.peer("p2").candidates, 1)
}

func TestCandidateWithoutAnyConnectionIsDropped(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	f.negotiator.HandleRemoteCandidate(candidatePayload("", "candidate:a"))
	f.negotiator.HandleRemoteCandidate(signaling.Payload{ParticipantID: "p1"})

	assert.Empty(t, f.factory.createdIDs())
}

func TestCandidateFailureDoesNotStopNegotiation(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)
	f.factory.configure = func(p *fakePeer) { p.addICEErr = errInjected }

	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))
	f.negotiator.HandleRemoteCandidate(candidatePayload("p1", "candidate:bad"))
	f.negotiator.HandleOffer(context.Background(), offerPayload("p1"))

	assert.Len(t, f.channel.sentOf(signaling.KindSpectatorAnswer), 2)
}

func TestForwardLocalCandidate(t *testing.T) {
	f := newNegotiatorFixture(DefaultMaxPendingCandidates)

	mid := "0"
	f.negotiator.ForwardLocalCandidate(context.Background(), "p1", webrtc.ICECandidateInit{
		Candidate: "candidate:local",
		SDPMid:    &mid,
	})

	sent := f.channel.sentOf(signaling.KindSpectatorICE)
	require.Len(t, sent, 1)
	assert.Equal(t, "p1", sent[0].ParticipantID)
	assert.Equal(t, "t1", sent[0].Token)
	require.NotNil(t, sent[0].Candidate)
	assert.Equal(t, "candidate:local", sent[0].Candidate.Candidate)
	assert.Equal(t, "0", *sent[0].Candidate.SDPMid)
}
