package http

import "net/http"

// NewRouter mounts the websocket gateway and a liveness probe.
func NewRouter(ws *WSHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	return mux
}
