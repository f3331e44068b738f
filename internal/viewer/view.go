package viewer

import (
	"github.com/pion/webrtc/v4"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// SlotCount is the number of display slots a session renders into.
const SlotCount = 2

// Stream groups the remote tracks a participant sends under one stream id.
// A Stream is never mutated after it is handed to the view; a new track
// produces a new Stream.
type Stream struct {
	ID            string
	ParticipantID string
	Tracks        []*webrtc.TrackRemote
}

func (s *Stream) withTrack(track *webrtc.TrackRemote) *Stream {
	next := &Stream{ID: s.ID, ParticipantID: s.ParticipantID}
	next.Tracks = make([]*webrtc.TrackRemote, 0, len(s.Tracks)+1)
	next.Tracks = append(next.Tracks, s.Tracks...)
	if track != nil {
		next.Tracks = append(next.Tracks, track)
	}
	return next
}

// View is what a session renders into. Calls come from the session's
// dispatch goroutine, one at a time.
type View interface {
	SetStatus(text string)
	Notify(message string, level Level)
	SetWaiting(waiting bool)
	AttachStream(slot int, stream *Stream)
	Release()
}
