package http

import (
	"log"
	"net/http"

	"gauntlet-service/internal/domain"
)

// serveLeaderboardWS streams leaderboard snapshots to admin dashboards. The
// subscriber receives the current snapshot immediately, then an update
// whenever any participant's progression changes.
func (h *Handler) serveLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.Identify(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !id.Admin {
		h.writeError(w, domain.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.SubscribeLeaderboard()
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
