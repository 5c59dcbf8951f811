package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/inventory"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/store"
)

const (
	defaultActivityLimit = 5
	maxActivityLimit     = 50
)

type HomeHandler struct {
	items      *store.ItemStore
	memos      *store.MemoStore
	activities *store.ActivityStore
	now        func() time.Time
	logger     *slog.Logger
}

func NewHomeHandler(is *store.ItemStore, ms *store.MemoStore, as *store.ActivityStore, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{items: is, memos: ms, activities: as, now: time.Now, logger: logger}
}

func (h *HomeHandler) recent(familyID int64, limit int) ([]model.Activity, error) {
	list, err := h.activities.List(familyID, limit)
	if err != nil {
		return nil, err
	}
	now := h.now()
	for i := range list {
		list[i].Ago = humanize.RelTime(list[i].At, now, "ago", "from now")
	}
	if list == nil {
		list = []model.Activity{}
	}
	return list, nil
}

func (h *HomeHandler) Activities(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxActivityLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	list, err := h.recent(auth.FamilyID(r.Context()), limit)
	if err != nil {
		h.logger.Error("list activities", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type homeResponse struct {
	Expiring   []model.ItemView `json:"expiring"`
	Memos      []model.Memo     `json:"memos"`
	Activities []model.Activity `json:"activities"`
}

func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())

	items, err := h.items.List(familyID)
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load home")
		return
	}
	memos, err := h.memos.List(familyID)
	if err != nil {
		h.logger.Error("list memos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load home")
		return
	}
	activities, err := h.recent(familyID, defaultActivityLimit)
	if err != nil {
		h.logger.Error("list activities", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load home")
		return
	}

	writeJSON(w, http.StatusOK, homeResponse{
		Expiring:   inventory.Expiring(items, h.now(), inventory.DefaultExpiringDays),
		Memos:      memos,
		Activities: activities,
	})
}
