package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Default configuration values
const (
	DefaultRelayURL       = "ws://localhost:8080/ws"
	DefaultRelayAddr      = ":8080"
	DefaultCodec          = "json"
	DefaultSTUN           = "stun:stun.l.google.com:19302"
	DefaultLinkBase       = "http://localhost:8080/watch"
	DefaultWaitingTimeout = 30 * time.Second
)

// Config holds application configuration
type Config struct {
	// RelayURL is the websocket endpoint of the signaling relay.
	RelayURL string

	// RelayAddr is the listen address when running the relay itself.
	RelayAddr string

	// Codec names the frame encoding used with the relay.
	Codec string

	// LinkBase is the page spectator links point at.
	LinkBase string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// RecordDir, when set, receives one media file per incoming track.
	RecordDir string

	WaitingTimeout time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	RelayURL       string
	RelayAddr      string
	Codec          string
	LinkBase       string
	STUNServer     string
	TURNServer     string
	TURNUser       string
	TURNPass       string
	ForceRelay     bool
	RecordDir      string
	WaitingTimeout time.Duration
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		RelayURL:   pick(opts.RelayURL, "RELAY_URL", DefaultRelayURL),
		RelayAddr:  pick(opts.RelayAddr, "RELAY_ADDR", DefaultRelayAddr),
		Codec:      pick(opts.Codec, "SIGNAL_CODEC", DefaultCodec),
		LinkBase:   pick(opts.LinkBase, "LINK_BASE", DefaultLinkBase),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		RecordDir:  pick(opts.RecordDir, "RECORD_DIR", ""),
		ForceRelay: opts.ForceRelay,
	}

	if !cfg.ForceRelay {
		if v := os.Getenv("FORCE_RELAY"); v != "" {
			force, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid FORCE_RELAY %q: %w", v, err)
			}
			cfg.ForceRelay = force
		}
	}

	cfg.WaitingTimeout = opts.WaitingTimeout
	if cfg.WaitingTimeout == 0 {
		if v := os.Getenv("WAITING_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid WAITING_TIMEOUT %q: %w", v, err)
			}
			cfg.WaitingTimeout = d
		}
	}
	if cfg.WaitingTimeout <= 0 {
		cfg.WaitingTimeout = DefaultWaitingTimeout
	}

	u, err := url.Parse(cfg.RelayURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL %q: %w", cfg.RelayURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("relay URL must use ws or wss, got %q", cfg.RelayURL)
	}

	return cfg, nil
}

func pick(flag, env, fallback string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", hostOf(c.TURNServer)),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// hostOf strips a "turn:" scheme prefix.
func hostOf(server string) string {
	const prefix = "turn:"
	if len(server) > len(prefix) && server[:len(prefix)] == prefix {
		return server[len(prefix):]
	}
	return server
}
