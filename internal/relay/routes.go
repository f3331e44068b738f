package relay

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aadsdarts/spectators-videochat/internal/signaling"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Spectators and participants connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades the request and attaches the connection to hub. The
// "codec" query parameter picks the frame encoding and defaults to JSON.
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codec, err := signaling.CodecByName(r.URL.Query().Get("codec"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("failed to upgrade connection", "err", err)
			return
		}

		client := NewClient(hub, conn, codec)

		select {
		case hub.Register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int64  `json:"clients"`
	Topics  int64  `json:"topics"`
}

// Health reports liveness together with hub counters.
func Health(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clients, topics := hub.Stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(healthResponse{Status: "ok", Clients: clients, Topics: topics})
	}
}

// NewRouter registers the websocket, health and spectator link endpoints.
func NewRouter(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ServeWs(hub))
	mux.HandleFunc("/health", Health(hub))
	mux.HandleFunc("/watch", Watch(hub))
	return mux
}
