package webrtc

import (
	"io"

	"github.com/pion/logging"
	pion "github.com/pion/webrtc/v4"

	"github.com/aadsdarts/spectators-videochat/internal/config"
	"github.com/aadsdarts/spectators-videochat/internal/utils"
)

// NewAPI builds a pion API whose internal logging goes to w at warn level.
// Pass nil to keep pion's defaults.
func NewAPI(w io.Writer) *pion.API {
	var se pion.SettingEngine
	if w != nil {
		lf := logging.NewDefaultLoggerFactory()
		lf.Writer = w
		lf.DefaultLogLevel = logging.LogLevelWarn
		se.LoggerFactory = lf
	}
	return pion.NewAPI(pion.WithSettingEngine(se))
}

// Configuration turns cfg into ICE settings. Relay-only transport is used
// when TURN is configured and either forced or the host looks tunnelled.
func Configuration(cfg *config.Config, forceRelay func() bool) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || forceRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// NewPeerConnection returns a constructor for receive-only spectator
// connections sharing one API and one configuration.
func NewPeerConnection(cfg *config.Config, api *pion.API) func() (*pion.PeerConnection, error) {
	if api == nil {
		api = NewAPI(nil)
	}
	conf := Configuration(cfg, utils.ShouldForceRelay)

	return func() (*pion.PeerConnection, error) {
		return api.NewPeerConnection(conf)
	}
}
