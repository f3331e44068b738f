package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aadsdarts/spectators-videochat/internal/config"
	"github.com/aadsdarts/spectators-videochat/internal/relay"
	"github.com/aadsdarts/spectators-videochat/internal/ui"
)

var flagRelayAddr string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the signaling relay",
	Long: `Run the topic broadcast relay that participants, spectators and the
lobby signal through. Clients connect to /ws; /health reports load.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{RelayAddr: flagRelayAddr})
		if err != nil {
			return err
		}
		return serveRelay(cmd.Context(), cfg.RelayAddr, slog.Default())
	},
}

func serveRelay(ctx context.Context, addr string, log *slog.Logger) error {
	// 1. Create the hub and run its event loop
	hub := relay.NewHub(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	// 2. Listen before announcing so the printed address is real
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           relay.NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 3. Serve until interrupted
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()
	ui.PrintSuccessf("Relay listening on ws://%s/ws", ln.Addr())

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	// 4. Stop accepting, then close every websocket through the hub
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	stopHub()
	<-hub.Done()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	ui.PrintInfo("Relay stopped")
	return nil
}

func init() {
	relayCmd.Flags().StringVar(&flagRelayAddr, "addr", "", "Listen address (env RELAY_ADDR)")
	rootCmd.AddCommand(relayCmd)
}
