package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/aadsdarts/spectators-videochat/internal/viewer"
	"github.com/aadsdarts/spectators-videochat/internal/webrtc"
)

// ConsoleView prints session updates as lines, for --plain and non-TTY use.
type ConsoleView struct {
	mu       sync.Mutex
	out      io.Writer
	sink     *webrtc.Sink
	waiting  bool
	released chan struct{}
	once     sync.Once
}

func NewConsoleView(out io.Writer, sink *webrtc.Sink) *ConsoleView {
	return &ConsoleView{out: out, sink: sink, released: make(chan struct{})}
}

func (v *ConsoleView) SetStatus(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "%s %s\n", IconConnect, text)
}

func (v *ConsoleView) Notify(message string, level viewer.Level) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, FormatNotice(message, level))
}

// SetWaiting prints only on transitions.
func (v *ConsoleView) SetWaiting(waiting bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if waiting == v.waiting {
		return
	}
	v.waiting = waiting
	if waiting {
		fmt.Fprintf(v.out, "%s Waiting for participants...\n", IconWaiting)
	}
}

func (v *ConsoleView) AttachStream(slot int, stream *viewer.Stream) {
	if stream == nil {
		return
	}
	if v.sink != nil {
		for _, track := range stream.Tracks {
			v.sink.Attach(slot, stream.ParticipantID, track)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "%s Slot %d: %s (stream %s, %d track(s))\n",
		IconLive, slot+1, stream.ParticipantID, stream.ID, len(stream.Tracks))
}

func (v *ConsoleView) Release() {
	v.once.Do(func() { close(v.released) })
}

// Released is closed once the session has let go of the view.
func (v *ConsoleView) Released() <-chan struct{} {
	return v.released
}
