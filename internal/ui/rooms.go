package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/aadsdarts/spectators-videochat/internal/lobby"
)

// RoomTable renders the live room list, highlighting the row at selected.
func RoomTable(rooms []lobby.Room, now time.Time, selected int) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No active rooms")
	}

	rows := make([][]string, 0, len(rooms))
	for i, r := range rooms {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), r.Code, r.Age(now)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Room", "Active").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row == selected:
				return TableSelectedStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// PlainRoomTable writes rooms as an uncoloured table for scripts and pipes.
func PlainRoomTable(w io.Writer, rooms []lobby.Room, now time.Time) {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	t.AppendHeader(prettytable.Row{"#", "Room", "Active", "Announced"})
	for i, r := range rooms {
		t.AppendRow(prettytable.Row{i + 1, r.Code, r.Age(now), r.AnnouncedAt.UTC().Format(time.RFC3339)})
	}
	t.AppendFooter(prettytable.Row{"", "Total", len(rooms), ""})
	t.Render()
}

// RoomSnapshot is a lobby view that only remembers the latest room list.
type RoomSnapshot struct {
	mu    sync.Mutex
	rooms []lobby.Room
	now   time.Time
}

func (s *RoomSnapshot) RenderRooms(rooms []lobby.Room, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = rooms
	s.now = now
}

// Rooms returns the last rendered list and the time it was rendered at.
func (s *RoomSnapshot) Rooms() ([]lobby.Room, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms, s.now
}
