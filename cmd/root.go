package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aadsdarts/spectators-videochat/internal/config"
	"github.com/aadsdarts/spectators-videochat/internal/ui"
	"github.com/aadsdarts/spectators-videochat/internal/version"
)

// Connection flags shared by every command that talks to the relay.
var (
	flagRelayURL       string
	flagCodec          string
	flagSTUN           string
	flagTURN           string
	flagTURNUser       string
	flagTURNPass       string
	flagForceRelay     bool
	flagRecordDir      string
	flagLinkBase       string
	flagWaitingTimeout time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spectate",
	Short: "Watch live video rooms as a spectator over WebRTC",
	Long: `spectate joins a live room as a receive-only viewer. Each participant
in the room offers their media to the spectator, which answers every offer and
shows up to two participants side by side.

It also ships the signaling relay the room talks through, a lobby browser
listing the rooms that are currently live, and an announcer for testing.`,
	Version: version.Version,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagRelayURL, "relay-url", "", "Signaling relay websocket URL (env RELAY_URL)")
	pf.StringVar(&flagCodec, "codec", "", "Relay frame encoding: json or msgpack (env SIGNAL_CODEC)")
	pf.StringVar(&flagSTUN, "stun", "", "STUN server URL (env STUN_SERVER)")
	pf.StringVar(&flagTURN, "turn", "", "TURN server URL (env TURN_SERVER)")
	pf.StringVar(&flagTURNUser, "turn-user", "", "TURN username (env TURN_USERNAME)")
	pf.StringVar(&flagTURNPass, "turn-pass", "", "TURN password (env TURN_PASSWORD)")
	pf.BoolVar(&flagForceRelay, "relay", false, "Force media through the TURN relay")
	pf.StringVar(&flagRecordDir, "record-dir", "", "Record incoming tracks into this directory (env RECORD_DIR)")
	pf.StringVar(&flagLinkBase, "link-base", "", "Base URL spectator links point at (env LINK_BASE)")
	pf.DurationVar(&flagWaitingTimeout, "waiting-timeout", 0, "How long to wait for media before notifying (env WAITING_TIMEOUT)")
}

func configOptions() config.Options {
	return config.Options{
		RelayURL:       flagRelayURL,
		Codec:          flagCodec,
		LinkBase:       flagLinkBase,
		STUNServer:     flagSTUN,
		TURNServer:     flagTURN,
		TURNUser:       flagTURNUser,
		TURNPass:       flagTURNPass,
		ForceRelay:     flagForceRelay,
		RecordDir:      flagRecordDir,
		WaitingTimeout: flagWaitingTimeout,
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
