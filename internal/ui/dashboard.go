package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aadsdarts/spectators-videochat/internal/utils"
	"github.com/aadsdarts/spectators-videochat/internal/viewer"
	"github.com/aadsdarts/spectators-videochat/internal/webrtc"
)

// NotificationTTL is how long a notification stays on screen.
const NotificationTTL = 5 * time.Second

const statsInterval = time.Second

type (
	statusMsg  string
	waitingMsg bool
	releaseMsg struct{}
	expireMsg  int
	statsTick  time.Time
)

type notifyMsg struct {
	text  string
	level viewer.Level
}

type streamMsg struct {
	slot   int
	stream *viewer.Stream
}

// DashboardView implements viewer.View on top of a running dashboard
// program. Attached tracks are handed to the sink before the pane updates.
type DashboardView struct {
	program Sender
	sink    *webrtc.Sink
}

func NewDashboardView(program Sender, sink *webrtc.Sink) *DashboardView {
	return &DashboardView{program: program, sink: sink}
}

func (v *DashboardView) SetStatus(text string) { v.program.Send(statusMsg(text)) }
func (v *DashboardView) SetWaiting(waiting bool) { v.program.Send(waitingMsg(waiting)) }
func (v *DashboardView) Release()                { v.program.Send(releaseMsg{}) }

func (v *DashboardView) Notify(message string, level viewer.Level) {
	v.program.Send(notifyMsg{text: message, level: level})
}

func (v *DashboardView) AttachStream(slot int, stream *viewer.Stream) {
	if v.sink != nil && stream != nil {
		for _, track := range stream.Tracks {
			v.sink.Attach(slot, stream.ParticipantID, track)
		}
	}
	v.program.Send(streamMsg{slot: slot, stream: stream})
}

type notice struct {
	id    int
	text  string
	level viewer.Level
}

// DashboardOptions configure a dashboard model.
type DashboardOptions struct {
	RoomCode       string
	WaitingTimeout time.Duration
	// Stats reports per-track counters; nil hides them.
	Stats func() []webrtc.TrackStats
	Now   func() time.Time
}

// DashboardModel renders a session: status, waiting indicator, one pane per
// slot and transient notifications.
type DashboardModel struct {
	opts DashboardOptions

	status       string
	waiting      bool
	waitingSince time.Time
	slots        [viewer.SlotCount]*viewer.Stream
	notes        []notice
	lastNote     int

	spinner  spinner.Model
	bar      progress.Model
	released bool
	quitting bool
}

func NewDashboardModel(opts DashboardOptions) *DashboardModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WaitingTimeout <= 0 {
		opts.WaitingTimeout = viewer.DefaultWaitingTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = SpinnerStyle

	return &DashboardModel{
		opts:    opts,
		spinner: s,
		bar: progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// Status is the last status line the session set.
func (m *DashboardModel) Status() string { return m.status }

// Notices returns the notifications currently on screen.
func (m *DashboardModel) Notices() []string {
	out := make([]string, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n.text)
	}
	return out
}

// Released reports whether the session ended on its own.
func (m *DashboardModel) Released() bool { return m.released }

func (m *DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickStats())
}

func tickStats() tea.Cmd {
	return tea.Tick(statsInterval, func(t time.Time) tea.Msg { return statsTick(t) })
}

func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case statusMsg:
		m.status = string(msg)

	case waitingMsg:
		m.waiting = bool(msg)
		if m.waiting && m.waitingSince.IsZero() {
			m.waitingSince = m.opts.Now()
		}

	case notifyMsg:
		m.lastNote++
		id := m.lastNote
		m.notes = append(m.notes, notice{id: id, text: msg.text, level: msg.level})
		return m, tea.Tick(NotificationTTL, func(time.Time) tea.Msg { return expireMsg(id) })

	case expireMsg:
		for i, n := range m.notes {
			if n.id == int(msg) {
				m.notes = append(m.notes[:i], m.notes[i+1:]...)
				break
			}
		}

	case streamMsg:
		if msg.slot >= 0 && msg.slot < len(m.slots) {
			m.slots[msg.slot] = msg.stream
		}

	case releaseMsg:
		m.released = true
		return m, tea.Quit

	case statsTick:
		if !m.released && !m.quitting {
			return m, tickStats()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *DashboardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s Room %s", IconRoom, m.opts.RoomCode)))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(StatusStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.released {
		for _, n := range m.notes {
			b.WriteString(FormatNotice(n.text, n.level) + "\n")
		}
		return b.String()
	}

	if m.waiting {
		b.WriteString(fmt.Sprintf("\n%s Waiting for participants %s\n", m.spinner.View(), m.bar.ViewAs(m.waitingFraction())))
	}

	b.WriteString("\n")
	b.WriteString(m.viewSlots())
	b.WriteString("\n")

	for _, n := range m.notes {
		b.WriteString(FormatNotice(n.text, n.level) + "\n")
	}

	b.WriteString(FooterStyle.Render("q leave"))
	return b.String()
}

func (m *DashboardModel) waitingFraction() float64 {
	elapsed := m.opts.Now().Sub(m.waitingSince)
	return min(float64(elapsed)/float64(m.opts.WaitingTimeout), 1)
}

func (m *DashboardModel) viewSlots() string {
	var stats []webrtc.TrackStats
	if m.opts.Stats != nil {
		stats = m.opts.Stats()
	}

	panes := make([]string, len(m.slots))
	for i, stream := range m.slots {
		panes[i] = renderSlot(i, stream, stats)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, panes...)
}

func renderSlot(slot int, stream *viewer.Stream, stats []webrtc.TrackStats) string {
	title := fmt.Sprintf("Slot %d", slot+1)
	if stream == nil {
		return EmptySlotStyle.Render(title + "\n\nEmpty")
	}

	lines := []string{
		BoldStyle.Render(title) + " " + IconLive,
		fmt.Sprintf("%s %s", IconPeer, utils.Truncate(stream.ParticipantID, 28)),
		MutedStyle.Render("stream " + utils.Truncate(stream.ID, 24)),
	}

	shown := 0
	for _, st := range stats {
		if st.Slot != slot || st.ParticipantID != stream.ParticipantID {
			continue
		}
		icon := IconVideo
		if st.Kind == "audio" {
			icon = IconAudio
		}
		lines = append(lines, fmt.Sprintf("%s %s %d pkts %s %s",
			icon, st.MimeType, st.Packets, utils.FormatSize(int64(st.Bytes)), utils.FormatBitrate(st.Bitrate())))
		shown++
	}
	if shown == 0 {
		lines = append(lines, fmt.Sprintf("%d track(s)", len(stream.Tracks)))
	}

	return SlotStyle.Render(strings.Join(lines, "\n"))
}
