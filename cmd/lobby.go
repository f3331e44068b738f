package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aadsdarts/spectators-videochat/internal/lobby"
	"github.com/aadsdarts/spectators-videochat/internal/signaling"
	"github.com/aadsdarts/spectators-videochat/internal/ui"
)

var (
	flagLobbyPlain bool
	flagLobbyWait  time.Duration
)

var lobbyCmd = &cobra.Command{
	Use:     "lobby",
	Aliases: []string{"l"},
	Short:   "Browse rooms that are live right now",
	Long: `List rooms announced on the lobby and pick one to watch.

With --plain the lobby is collected for --wait and printed once as a table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configOptions())
		if err != nil {
			return err
		}

		conn, err := NewConnectionContext(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		if flagLobbyPlain {
			return printLobby(cmd.Context(), conn, flagLobbyWait)
		}
		return browseLobby(cmd.Context(), conn)
	},
}

func watcherOptions(conn *ConnectionContext) lobby.WatcherOptions {
	return lobby.WatcherOptions{Window: lobby.LivenessWindow, Logger: conn.Log}
}

func printLobby(ctx context.Context, conn *ConnectionContext, wait time.Duration) error {
	snap := &ui.RoomSnapshot{}
	w := lobby.NewWatcher(conn.Client.Channel(signaling.LobbyTopic), snap, watcherOptions(conn))

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	sp := ui.NewWaitingSpinner(os.Stdout, "Listening for rooms...")
	sp.Start()
	err := w.Run(ctx)
	sp.Stop()
	if err != nil {
		return err
	}

	rooms, now := snap.Rooms()
	ui.PlainRoomTable(os.Stdout, rooms, now)
	return nil
}

func browseLobby(ctx context.Context, conn *ConnectionContext) error {
	var w *lobby.Watcher
	model := ui.NewLobbyModel(func() { w.Refresh() })
	program := tea.NewProgram(model, tea.WithContext(ctx))
	w = lobby.NewWatcher(conn.Client.Channel(signaling.LobbyTopic), ui.NewLobbyView(program), watcherOptions(conn))

	watchCtx, stopWatching := context.WithCancel(ctx)
	watchDone := make(chan error, 1)
	go func() {
		err := w.Run(watchCtx)
		if err != nil {
			program.Quit()
		}
		watchDone <- err
	}()

	_, uiErr := program.Run()
	stopWatching()
	if err := <-watchDone; err != nil {
		return err
	}
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}

	room, ok := model.Selected()
	if !ok {
		return nil
	}

	target := lobby.Target{RoomCode: room.Code, Token: lobby.NewToken()}
	if link, err := lobby.WatchLink(conn.Config.LinkBase, target); err == nil {
		ui.PrintInfof("%s %s", ui.IconLink, link)
	}
	return runWatch(ctx, conn, target, false)
}

func init() {
	lobbyCmd.Flags().BoolVar(&flagLobbyPlain, "plain", false, "Print the room list once instead of the interactive picker")
	lobbyCmd.Flags().DurationVar(&flagLobbyWait, "wait", 2*lobby.SweepInterval, "How long to collect announcements with --plain")
	rootCmd.AddCommand(lobbyCmd)
}
