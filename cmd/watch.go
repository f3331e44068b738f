package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/aadsdarts/spectators-videochat/internal/lobby"
	"github.com/aadsdarts/spectators-videochat/internal/viewer"
)

var (
	flagWatchRoom  string
	flagWatchToken string
	flagWatchPlain bool
)

var watchCmd = &cobra.Command{
	Use:     "watch [link|room-code]",
	Aliases: []string{"w"},
	Short:   "Join a room as a spectator",
	Long: `Join a live room as a receive-only spectator.

Examples:
  spectate watch "http://localhost:8080/watch?roomCode=ABCD12&token=t1"
  spectate watch ABCD12 --token t1
  spectate watch --room ABCD12 --token t1 --plain --record-dir ./recordings`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := resolveTarget(args, flagWatchRoom, flagWatchToken)
		if err != nil {
			return err
		}
		params := viewer.JoinParams{RoomCode: target.RoomCode, Token: target.Token}
		if err := params.Validate(); err != nil {
			return viewer.NewError("join", err)
		}

		cfg, err := LoadConfig(configOptions())
		if err != nil {
			return err
		}

		conn, err := NewConnectionContext(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		return runWatch(cmd.Context(), conn, target, flagWatchPlain)
	},
}

// resolveTarget accepts a spectator link or a bare room code; flags win.
func resolveTarget(args []string, room, token string) (lobby.Target, error) {
	var target lobby.Target
	if len(args) == 1 {
		t, err := lobby.ParseWatchLink(args[0])
		switch {
		case err == nil:
			target = t
		case errors.Is(err, lobby.ErrNotALink):
			target.RoomCode = args[0]
		default:
			return lobby.Target{}, err
		}
	}
	if room != "" {
		target.RoomCode = room
	}
	if token != "" {
		target.Token = token
	}
	return target, nil
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchRoom, "room", "", "Room code to join")
	watchCmd.Flags().StringVar(&flagWatchToken, "token", "", "Spectator token")
	watchCmd.Flags().BoolVar(&flagWatchPlain, "plain", false, "Print status lines instead of the dashboard")
	rootCmd.AddCommand(watchCmd)
}
