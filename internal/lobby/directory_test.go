package lobby

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 = int64(1700000000000)

func codes(rooms []Room) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Code)
	}
	return out
}

func TestSweepRemovesExpiredRoom(t *testing.T) {
	d := NewDirectory(LivenessWindow)

	require.True(t, d.Observe(Announcement{RoomCode: "XYZ987", Timestamp: t0}))
	assert.Equal(t, []string{"XYZ987"}, codes(d.Snapshot()))

	removed := d.Sweep(time.UnixMilli(t0 + 20000))
	assert.Equal(t, 1, removed)
	assert.Empty(t, d.Snapshot())
}

func TestSweepKeepsRoomAtWindowEdge(t *testing.T) {
	d := NewDirectory(LivenessWindow)
	d.Observe(Announcement{RoomCode: "EDGE01", Timestamp: t0})

	assert.Zero(t, d.Sweep(time.UnixMilli(t0+15000)))
	assert.Equal(t, 1, d.Len())
}

func TestReannounceRefreshesWithoutReordering(t *testing.T) {
	d := NewDirectory(LivenessWindow)
	d.Observe(Announcement{RoomCode: "AAA111", Timestamp: t0})
	d.Observe(Announcement{RoomCode: "BBB222", Timestamp: t0 + 1000})
	d.Observe(Announcement{RoomCode: "AAA111", Timestamp: t0 + 12000})

	assert.Equal(t, []string{"AAA111", "BBB222"}, codes(d.Snapshot()))

	d.Sweep(time.UnixMilli(t0 + 20000))
	assert.Equal(t, []string{"AAA111"}, codes(d.Snapshot()))
	assert.Equal(t, time.UnixMilli(t0+12000), d.Snapshot()[0].AnnouncedAt)
}

func TestMalformedAnnouncementsAreDropped(t *testing.T) {
	d := NewDirectory(LivenessWindow)

	assert.False(t, d.Observe(Announcement{Timestamp: t0}))
	assert.False(t, d.Observe(Announcement{RoomCode: "NOTIME"}))
	assert.Zero(t, d.Len())
}

func TestSnapshotNeverHoldsExpiredRooms(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	d := NewDirectory(LivenessWindow)
	now := t0

	for range 500 {
		now += rng.Int64N(4000)
		if rng.IntN(3) > 0 {
			code := string(rune('A'+rng.IntN(8))) + "00000"
			d.Observe(Announcement{RoomCode: code, Timestamp: now - rng.Int64N(30000)})
			continue
		}

		sweptAt := time.UnixMilli(now)
		d.Sweep(sweptAt)
		for _, r := range d.Snapshot() {
			assert.LessOrEqual(t, sweptAt.Sub(r.AnnouncedAt), LivenessWindow, r.Code)
		}
	}
}

func TestRoomAge(t *testing.T) {
	now := time.UnixMilli(t0)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{ago: 3 * time.Second, want: "Just now"},
		{ago: 59 * time.Second, want: "Just now"},
		{ago: 2 * time.Minute, want: "2m ago"},
		{ago: 59 * time.Minute, want: "59m ago"},
		{ago: 3 * time.Hour, want: "3h ago"},
	}

	for _, tt := range tests {
		r := Room{Code: "X", AnnouncedAt: now.Add(-tt.ago)}
		assert.Equal(t, tt.want, r.Age(now))
	}
}
