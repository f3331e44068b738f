package viewer

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadsdarts/spectators-videochat/internal/relay"
	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

func startTestRelay(t *testing.T) string {
	t.Helper()

	hub := relay.NewHub(testLogger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(relay.NewRouter(hub))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func connectClient(t *testing.T, url string, codec signaling.Codec) *signaling.Client {
	t.Helper()

	c := signaling.NewClient(url, codec, testLogger)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Close)
	return c
}

// nextMessage skips events until one of kind arrives.
func nextMessage(t *testing.T, ch *signaling.Channel, kind signaling.Kind) signaling.Payload {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			require.True(t, ok, "participant channel closed")
			if ev.Message != nil && ev.Message.Kind == kind {
				return ev.Message.Payload
			}
		case <-deadline:
			t.Fatalf("no %s message", kind)
		}
	}
}

func TestSpectatorAnswersParticipantOverRelay(t *testing.T) {
	url := startTestRelay(t)
	ctx := context.Background()

	participant := connectClient(t, url, signaling.MsgpackCodec{})
	room := participant.Channel(signaling.RoomTopic("ABCD12"))
	require.NoError(t, room.Subscribe(ctx))
	select {
	case ev := <-room.Events():
		require.Equal(t, signaling.StatusSubscribed, ev.Status)
	case <-time.After(waitFor):
		t.Fatal("participant never subscribed")
	}

	sender, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { sender.Close() })

	track, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "participant-p1")
	require.NoError(t, err)
	_, err = sender.AddTrack(track)
	require.NoError(t, err)

	spectator := connectClient(t, url, signaling.JSONCodec{})
	view := &fakeView{}
	s, err := Join(ctx, JoinParams{RoomCode: "ABCD12", Token: "t1"}, Deps{
		OpenChannel: func(topic string) Channel { return spectator.Channel(topic) },
		NewConnection: PionFactory(func() (*webrtc.PeerConnection, error) {
			return webrtc.NewPeerConnection(webrtc.Configuration{})
		}),
		View:   view,
		Logger: testLogger,
	}, Options{})
	require.NoError(t, err)
	t.Cleanup(s.Leave)

	ready := nextMessage(t, room, signaling.KindSpectatorReady)
	assert.Equal(t, "t1", ready.Token)

	offer, err := sender.CreateOffer(nil)
	require.NoError(t, err)
	gathered := webrtc.GatheringCompletePromise(sender)
	require.NoError(t, sender.SetLocalDescription(offer))
	<-gathered

	require.NoError(t, room.Send(ctx, signaling.KindOffer, signaling.Payload{
		ParticipantID: "p1",
		Offer:         signaling.DescriptionFromPion(*sender.LocalDescription()),
	}))

	reply := nextMessage(t, room, signaling.KindSpectatorAnswer)
	assert.Equal(t, "p1", reply.ParticipantID)
	assert.Equal(t, "t1", reply.Token)
	require.NotNil(t, reply.Answer)

	answer, err := reply.Answer.ToPion()
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	require.NoError(t, sender.SetRemoteDescription(answer))
	assert.Equal(t, webrtc.SignalingStateStable, sender.SignalingState())

	require.Eventually(t, func() bool {
		st := s.State()
		return len(st.Participants) == 1 &&
			st.Participants[0].ID == "p1" &&
			st.Participants[0].Signaling == webrtc.SignalingStateStable
	}, waitFor, tick)
}
