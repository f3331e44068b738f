package lobby

import (
	"fmt"
	"time"
)

const (
	// LivenessWindow is how long a room stays listed after its last announcement.
	LivenessWindow = 15 * time.Second

	// SweepInterval is how often stale rooms are removed.
	SweepInterval = 5 * time.Second
)

// Announcement is a room-active broadcast as received from the lobby topic.
type Announcement struct {
	RoomCode string
	// Timestamp is the sender's clock in Unix milliseconds.
	Timestamp int64
}

// Room is a live room as listed to the user.
type Room struct {
	Code        string
	AnnouncedAt time.Time
}

// Age describes how long ago the room was last announced.
func (r Room) Age(now time.Time) string {
	d := now.Sub(r.AnnouncedAt)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	default:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}
}

// Directory tracks live rooms keyed by code. Rooms keep the position of their
// first announcement; re-announcing only refreshes AnnouncedAt.
//
// Directory is not safe for concurrent use. The Watcher owns it.
type Directory struct {
	window time.Duration
	rooms  map[string]*Room
	order  []string
}

// NewDirectory returns an empty directory that expires rooms after window.
func NewDirectory(window time.Duration) *Directory {
	if window <= 0 {
		window = LivenessWindow
	}
	return &Directory{
		window: window,
		rooms:  make(map[string]*Room),
	}
}

// Observe records an announcement. Announcements without a code or
// timestamp are dropped and Observe reports false.
func (d *Directory) Observe(a Announcement) bool {
	if a.RoomCode == "" || a.Timestamp == 0 {
		return false
	}

	at := time.UnixMilli(a.Timestamp)
	if r, ok := d.rooms[a.RoomCode]; ok {
		r.AnnouncedAt = at
		return true
	}

	d.rooms[a.RoomCode] = &Room{Code: a.RoomCode, AnnouncedAt: at}
	d.order = append(d.order, a.RoomCode)
	return true
}

// Sweep removes rooms whose last announcement is older than the window at now
// and returns how many were removed.
func (d *Directory) Sweep(now time.Time) int {
	kept := d.order[:0]
	removed := 0
	for _, code := range d.order {
		if now.Sub(d.rooms[code].AnnouncedAt) > d.window {
			delete(d.rooms, code)
			removed++
			continue
		}
		kept = append(kept, code)
	}
	d.order = kept
	return removed
}

// Snapshot returns the live rooms in first-seen order.
func (d *Directory) Snapshot() []Room {
	out := make([]Room, 0, len(d.order))
	for _, code := range d.order {
		out = append(out, *d.rooms[code])
	}
	return out
}

// Len returns the number of listed rooms.
func (d *Directory) Len() int {
	return len(d.order)
}
