package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

const eventTimeout = 2 * time.Second

type testRelay struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

func (r *testRelay) wsURL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"
}

func startRelay(t *testing.T) *testRelay {
	t.Helper()

	hub := NewHub(slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(hub))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testRelay{hub: hub, server: srv, cancel: cancel}
}

func dial(t *testing.T, r *testRelay, codec signaling.Codec) *signaling.Client {
	t.Helper()

	c := signaling.NewClient(r.wsURL(), codec, slog.New(slog.DiscardHandler))
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Close)
	return c
}

func nextEvent(t *testing.T, ch *signaling.Channel) signaling.Event {
	t.Helper()

	select {
	case ev, ok := <-ch.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(eventTimeout):
		t.Fatalf("no event on %s", ch.Topic())
		return signaling.Event{}
	}
}

func assertQuiet(t *testing.T, ch *signaling.Channel) {
	t.Helper()

	select {
	case ev := <-ch.Events():
		t.Fatalf("unexpected event on %s: %+v", ch.Topic(), ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func subscribe(t *testing.T, c *signaling.Client, topic string) *signaling.Channel {
	t.Helper()

	ch := c.Channel(topic)
	require.NoError(t, ch.Subscribe(context.Background()))
	ev := nextEvent(t, ch)
	require.Equal(t, signaling.StatusSubscribed, ev.Status)
	return ch
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := startRelay(t)
	topic := signaling.RoomTopic("ABCD12")

	participant := subscribe(t, dial(t, r, signaling.JSONCodec{}), topic)
	spectator := subscribe(t, dial(t, r, signaling.JSONCodec{}), topic)

	offer := signaling.Payload{
		ParticipantID: "p1",
		Offer:         &signaling.SessionDescription{Type: "offer", SDP: "v=0"},
	}
	require.NoError(t, participant.Send(context.Background(), signaling.KindOffer, offer))

	ev := nextEvent(t, spectator)
	require.NotNil(t, ev.Message)
	assert.Equal(t, signaling.KindOffer, ev.Message.Kind)
	assert.Equal(t, offer, ev.Message.Payload)

	assertQuiet(t, participant)
}

func TestBroadcastTranscodesBetweenCodecs(t *testing.T) {
	r := startRelay(t)
	topic := signaling.RoomTopic("MIXED1")

	jsonSide := subscribe(t, dial(t, r, signaling.JSONCodec{}), topic)
	msgpackSide := subscribe(t, dial(t, r, signaling.MsgpackCodec{}), topic)

	mid := "0"
	index := uint16(0)
	candidate := signaling.Payload{
		ParticipantID: "p1",
		Token:         "t1",
		Candidate: &signaling.ICECandidate{
			Candidate:     "candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host",
			SDPMid:        &mid,
			SDPMLineIndex: &index,
		},
		Timestamp: 1700000000123,
	}

	require.NoError(t, msgpackSide.Send(context.Background(), signaling.KindSpectatorICE, candidate))
	ev := nextEvent(t, jsonSide)
	require.NotNil(t, ev.Message)
	assert.Equal(t, signaling.KindSpectatorICE, ev.Message.Kind)
	assert.Equal(t, candidate, ev.Message.Payload)

	ready := signaling.Payload{Token: "t1"}
	require.NoError(t, jsonSide.Send(context.Background(), signaling.KindSpectatorReady, ready))
	ev = nextEvent(t, msgpackSide)
	require.NotNil(t, ev.Message)
	assert.Equal(t, signaling.KindSpectatorReady, ev.Message.Kind)
	assert.Equal(t, ready, ev.Message.Payload)
}

func TestBroadcastWithoutSubscriptionIsRejected(t *testing.T) {
	r := startRelay(t)

	ch := dial(t, r, signaling.JSONCodec{}).Channel(signaling.RoomTopic("NOPE00"))
	require.NoError(t, ch.Send(context.Background(), signaling.KindSpectatorReady, signaling.Payload{Token: "t"}))

	ev := nextEvent(t, ch)
	assert.Equal(t, signaling.StatusChannelError, ev.Status)
}

func TestUnsubscribeRemovesEmptyTopic(t *testing.T) {
	r := startRelay(t)

	ch := subscribe(t, dial(t, r, signaling.JSONCodec{}), signaling.LobbyTopic)
	_, topics := r.hub.Stats()
	assert.Equal(t, int64(1), topics)

	require.NoError(t, ch.Unsubscribe())
	require.NoError(t, ch.Unsubscribe())

	assert.Eventually(t, func() bool {
		_, topics := r.hub.Stats()
		return topics == 0
	}, eventTimeout, 10*time.Millisecond)
}

func TestDisconnectReleasesClient(t *testing.T) {
	r := startRelay(t)

	c := dial(t, r, signaling.MsgpackCodec{})
	subscribe(t, c, signaling.LobbyTopic)

	c.Close()

	assert.Eventually(t, func() bool {
		clients, topics := r.hub.Stats()
		return clients == 0 && topics == 0
	}, eventTimeout, 10*time.Millisecond)
}

func TestHubShutdownClosesEventStreams(t *testing.T) {
	r := startRelay(t)

	ch := subscribe(t, dial(t, r, signaling.JSONCodec{}), signaling.LobbyTopic)
	r.cancel()

	select {
	case _, ok := <-ch.Events():
		assert.False(t, ok)
	case <-time.After(eventTimeout):
		t.Fatal("event stream still open after relay shutdown")
	}
}

func TestHealth(t *testing.T) {
	r := startRelay(t)
	subscribe(t, dial(t, r, signaling.JSONCodec{}), signaling.LobbyTopic)

	resp, err := http.Get(r.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, int64(1), body.Clients)
	assert.Equal(t, int64(1), body.Topics)
}

func TestUnknownCodecIsRejected(t *testing.T) {
	r := startRelay(t)

	resp, err := http.Get(r.server.URL + "/ws?codec=xml")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNickname(t *testing.T) {
	for range 20 {
		parts := strings.Split(nickname(), "-")
		require.Len(t, parts, 2)
		assert.Contains(t, adjectives, parts[0])
		assert.Contains(t, animals, parts[1])
	}
}

func TestWatchLanding(t *testing.T) {
	r := startRelay(t)

	resp, err := http.Get(r.server.URL + "/watch?roomCode=ABCD12&token=t1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "--room ABCD12 --token t1")
	assert.Contains(t, string(body), "--relay-url "+r.wsURL())

	resp, err = http.Get(r.server.URL + "/watch?roomCode=ABCD12")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
