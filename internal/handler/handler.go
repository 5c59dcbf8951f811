package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/stats"
	"github.com/foodian-app/foodian/internal/websocket"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// notifier fans family mutations out to websocket clients and drops the
// family's cached statistics.
type notifier struct {
	hub    *websocket.Hub
	cache  cache.Cache
	logger *slog.Logger
}

func (n notifier) broadcast(familyID int64, msg websocket.Message) {
	if n.hub != nil {
		n.hub.Broadcast(familyID, msg)
	}
}

func (n notifier) invalidateStats(ctx context.Context, familyID int64) {
	if n.cache == nil {
		return
	}
	if err := n.cache.DeletePrefix(ctx, stats.CachePrefix(familyID)); err != nil {
		n.logger.Warn("invalidate stats cache", "family_id", familyID, "error", err)
	}
}
