package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/foodian-app/foodian/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and joins the caller's family channel.
// originPatterns lists the hosts allowed to open cross-origin connections.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if ac.FamilyID == 0 {
			http.Error(w, "family required", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}

		NewClient(hub, conn, ac.FamilyID, ac.UserID).Run(r.Context())
	}
}
