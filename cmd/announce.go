package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/aadsdarts/spectators-videochat/internal/lobby"
	"github.com/aadsdarts/spectators-videochat/internal/signaling"
	"github.com/aadsdarts/spectators-videochat/internal/ui"
)

var (
	flagAnnounceRoom     string
	flagAnnounceInterval time.Duration
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Keep a room listed in the lobby",
	Long: `Broadcast room-active for a room on the lobby topic until interrupted.
A new room code is generated when --room is not given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configOptions())
		if err != nil {
			return err
		}

		code := flagAnnounceRoom
		if code == "" {
			code = lobby.NewRoomCode()
		}

		conn, err := NewConnectionContext(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		target := lobby.Target{RoomCode: code, Token: lobby.NewToken()}
		if link, err := lobby.WatchLink(cfg.LinkBase, target); err == nil {
			ui.PrintInfo(ui.LinkBox(code, link))
		}

		a := lobby.NewAnnouncer(conn.Client.Channel(signaling.LobbyTopic), code, flagAnnounceInterval, nil, conn.Log)
		err = a.Run(cmd.Context())
		if errors.Is(err, lobby.ErrChannelClosed) {
			return errors.New("relay connection lost")
		}
		return err
	},
}

func init() {
	announceCmd.Flags().StringVar(&flagAnnounceRoom, "room", "", "Room code to announce")
	announceCmd.Flags().DurationVar(&flagAnnounceInterval, "interval", lobby.SweepInterval, "Time between announcements")
	rootCmd.AddCommand(announceCmd)
}
