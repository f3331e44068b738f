package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aadsdarts/spectators-videochat/internal/config"
	"github.com/aadsdarts/spectators-videochat/internal/files"
	"github.com/aadsdarts/spectators-videochat/internal/lobby"
	"github.com/aadsdarts/spectators-videochat/internal/logging"
	"github.com/aadsdarts/spectators-videochat/internal/signaling"
	"github.com/aadsdarts/spectators-videochat/internal/ui"
	"github.com/aadsdarts/spectators-videochat/internal/utils"
	"github.com/aadsdarts/spectators-videochat/internal/viewer"
	"github.com/aadsdarts/spectators-videochat/internal/webrtc"
)

// ConnectionContext is an open relay connection plus the config it was made with.
type ConnectionContext struct {
	Client *signaling.Client
	Config *config.Config
	Log    *slog.Logger
}

func NewConnectionContext(ctx context.Context, cfg *config.Config) (*ConnectionContext, error) {
	codec, err := signaling.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	log := slog.Default()
	sp := ui.NewConnectionSpinner(os.Stdout, "Connecting to relay...")
	sp.Start()

	client := signaling.NewClient(cfg.RelayURL, codec, log)
	if err := client.Connect(ctx); err != nil {
		sp.Error("Could not reach the relay")
		return nil, fmt.Errorf("connect to relay: %w", err)
	}
	sp.Stop()

	return &ConnectionContext{Client: client, Config: cfg, Log: log}, nil
}

func (c *ConnectionContext) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, errors.New("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func (c *ConnectionContext) viewerDeps(view viewer.View) viewer.Deps {
	api := webrtc.NewAPI(logging.Writer(c.Log, slog.LevelWarn, "component", "pion"))
	return viewer.Deps{
		OpenChannel:   func(topic string) viewer.Channel { return c.Client.Channel(topic) },
		NewConnection: viewer.PionFactory(webrtc.NewPeerConnection(c.Config, api)),
		View:          view,
		Clock:         clock.New(),
		Logger:        c.Log,
	}
}

// runWatch joins target as a spectator and blocks until the user leaves,
// ctx is cancelled or the session ends on its own.
func runWatch(ctx context.Context, conn *ConnectionContext, target lobby.Target, plain bool) error {
	params := viewer.JoinParams{RoomCode: target.RoomCode, Token: target.Token}
	if err := params.Validate(); err != nil {
		return viewer.NewError("join", err)
	}

	recordDir := conn.Config.RecordDir
	if recordDir != "" {
		dir, err := files.PrepareRecordDir(recordDir)
		if err != nil {
			return err
		}
		recordDir = dir
	}

	sink := webrtc.NewSink(recordDir, clock.New(), conn.Log)
	defer reportRecordings(sink)

	opts := viewer.Options{WaitingTimeout: conn.Config.WaitingTimeout}

	if plain {
		view := ui.NewConsoleView(os.Stdout, sink)
		session, err := viewer.Join(ctx, params, conn.viewerDeps(view), opts)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
		case <-session.Done():
		}
		session.Leave()
		return nil
	}

	model := ui.NewDashboardModel(ui.DashboardOptions{
		RoomCode:       params.RoomCode,
		WaitingTimeout: opts.WaitingTimeout,
		Stats:          sink.Snapshot,
	})
	program := tea.NewProgram(model, tea.WithContext(ctx))
	view := ui.NewDashboardView(program, sink)

	uiDone := make(chan error, 1)
	go func() {
		_, err := program.Run()
		uiDone <- err
	}()

	session, err := viewer.Join(ctx, params, conn.viewerDeps(view), opts)
	if err != nil {
		program.Quit()
		<-uiDone
		return err
	}

	uiErr := <-uiDone
	session.Leave()
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	return nil
}

func reportRecordings(sink *webrtc.Sink) {
	if err := sink.Close(); err != nil {
		ui.PrintWarning(fmt.Sprintf("closing recordings: %v", err))
	}

	var paths []string
	for _, st := range sink.Snapshot() {
		if st.File != "" {
			paths = append(paths, st.File)
		}
	}

	recs := files.ListRecordings(paths)
	for _, r := range recs {
		ui.PrintSuccessf("Recorded %s (%s, %s)", r.Path, r.Type, utils.FormatSize(r.Size))
	}
	if len(recs) > 1 {
		ui.PrintInfof("%d recordings, %s total", len(recs), utils.FormatSize(files.TotalSize(recs)))
	}
}
