package relay

import (
	_ "embed"
	"net/http"
	"text/template"
)

//go:embed watch.txt
var watchText string

var watchTemplate = template.Must(template.New("watch").Parse(watchText))

type watchPage struct {
	RoomCode string
	Token    string
	RelayURL string
}

// Watch serves the landing text spectator links point at. It tells the
// reader how to join the linked room with the CLI.
func Watch(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Only allow GET and HEAD requests
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		page := watchPage{RoomCode: q.Get("roomCode"), Token: q.Get("token"), RelayURL: relayURL(r)}
		if page.RoomCode == "" || page.Token == "" {
			http.Error(w, "link needs roomCode and token", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if err := watchTemplate.Execute(w, page); err != nil {
			hub.log.Warn("render watch page", "err", err)
		}
	}
}

func relayURL(r *http.Request) string {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + "/ws"
}
