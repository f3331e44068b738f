package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aadsdarts/spectators-videochat/internal/lobby"
)

// Sender is the part of *tea.Program views push updates through.
type Sender interface {
	Send(msg tea.Msg)
}

type roomsMsg struct {
	rooms []lobby.Room
	now   time.Time
}

// LobbyView forwards watcher renders into a running lobby program.
type LobbyView struct {
	program Sender
}

func NewLobbyView(program Sender) *LobbyView {
	return &LobbyView{program: program}
}

func (v *LobbyView) RenderRooms(rooms []lobby.Room, now time.Time) {
	v.program.Send(roomsMsg{rooms: rooms, now: now})
}

// LobbyModel is the room picker: arrows move, r refreshes, enter watches.
type LobbyModel struct {
	rooms    []lobby.Room
	now      time.Time
	cursor   int
	selected *lobby.Room
	refresh  func()
	spinner  spinner.Model
	loaded   bool
	quitting bool
}

// NewLobbyModel creates the picker. refresh is called on r.
func NewLobbyModel(refresh func()) *LobbyModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &LobbyModel{refresh: refresh, spinner: s}
}

// Selected returns the room chosen with enter, if any.
func (m *LobbyModel) Selected() (lobby.Room, bool) {
	if m.selected == nil {
		return lobby.Room{}, false
	}
	return *m.selected, true
}

func (m *LobbyModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *LobbyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rooms)-1 {
				m.cursor++
			}
		case "r":
			if m.refresh != nil {
				m.refresh()
			}
		case "enter":
			if len(m.rooms) > 0 {
				room := m.rooms[m.cursor]
				m.selected = &room
				m.quitting = true
				return m, tea.Quit
			}
		}

	case roomsMsg:
		m.rooms = msg.rooms
		m.now = msg.now
		m.loaded = true
		if m.cursor >= len(m.rooms) {
			m.cursor = max(len(m.rooms)-1, 0)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *LobbyModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(IconLive + " Live rooms"))
	b.WriteString("\n")

	if !m.loaded {
		b.WriteString(m.spinner.View() + " Listening for rooms...")
	} else {
		b.WriteString(RoomTable(m.rooms, m.now, m.cursor))
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("↑/↓ select • enter watch • r refresh • q quit"))
	return b.String()
}
