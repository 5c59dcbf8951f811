package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/inventory"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/stats"
	"github.com/foodian-app/foodian/internal/store"
)

type StatsHandler struct {
	events *store.EventStore
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewStatsHandler(es *store.EventStore, c cache.Cache, ttl time.Duration, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{events: es, cache: c, ttl: ttl, now: time.Now, logger: logger}
}

func statsKey(familyID int64, storage string, days int) string {
	return fmt.Sprintf("%s%s:%d", stats.CachePrefix(familyID), storage, days)
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	storage := inventory.StorageAll
	var filter model.Storage
	if v := q.Get("storage"); v != "" && !inventory.IsAllStorages(v) {
		st, ok := inventory.ParseStorage(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid storage")
			return
		}
		storage, filter = string(st), st
	}

	days := stats.DefaultDays
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > stats.MaxDays {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", stats.MaxDays))
			return
		}
		days = n
	}

	familyID := auth.FamilyID(r.Context())
	compute := func() ([]byte, error) {
		report, err := h.build(familyID, storage, filter, days)
		if err != nil {
			return nil, err
		}
		return json.Marshal(report)
	}

	var body []byte
	var err error
	if h.cache != nil {
		body, err = h.cache.GetOrSet(r.Context(), statsKey(familyID, storage, days), h.ttl, compute)
		if err != nil {
			h.logger.Warn("stats cache", "family_id", familyID, "error", err)
			body, err = compute()
		}
	} else {
		body, err = compute()
	}
	if err != nil {
		h.logger.Error("build statistics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build statistics")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *StatsHandler) build(familyID int64, storage string, filter model.Storage, days int) (stats.Report, error) {
	now := h.now()
	since := stats.WindowStart(days, now)
	events, err := h.events.List(familyID, since, filter)
	if err != nil {
		return stats.Report{}, err
	}
	alerts, err := h.events.ListAlerts(familyID, since, filter)
	if err != nil {
		return stats.Report{}, err
	}
	return stats.Build(storage, days, events, alerts, now), nil
}
