package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/setting"
	"github.com/foodian-app/foodian/internal/store"
	"github.com/foodian-app/foodian/internal/websocket"
)

type SettingHandler struct {
	settings *store.SettingsStore
	families *store.FamilyStore
	notifier
}

func NewSettingHandler(sts *store.SettingsStore, fs *store.FamilyStore, hub *websocket.Hub, logger *slog.Logger) *SettingHandler {
	return &SettingHandler{
		settings: sts,
		families: fs,
		notifier: notifier{hub: hub, logger: logger},
	}
}

// ownMember parses {memberId} and allows only the session user's own settings.
func ownMember(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("memberId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memberId")
		return 0, false
	}
	if id != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot access another member's settings")
		return 0, false
	}
	return id, true
}

func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownMember(w, r)
	if !ok {
		return
	}
	st, err := h.settings.Get(userID)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if st == nil {
		d := setting.Default()
		st = &d
	}

	fam, _, err := h.families.GetForUser(userID)
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if fam != nil && len(fam.Storages) > 0 {
		st.Storages = fam.Storages
	}
	writeJSON(w, http.StatusOK, st)
}

// Put saves the member's settings. A storage list that differs from the
// family's is a family change and needs the leader.
func (h *SettingHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownMember(w, r)
	if !ok {
		return
	}
	var in model.Settings
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := setting.Normalize(in)
	if err := setting.Validate(st); err != nil {
		var ve *setting.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid settings", "fields": ve.Fields})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fam, role, err := h.families.GetForUser(userID)
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	if fam != nil && !setting.SameStorages(st.Storages, fam.Storages) {
		if role != model.RoleLeader {
			writeError(w, http.StatusForbidden, "only the leader can change storages")
			return
		}
		if _, err := h.families.UpdateStorages(fam.ID, st.Storages); err != nil {
			h.logger.Error("update family storages", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		h.broadcast(fam.ID, websocket.NewMessage("family", "updated", strconv.FormatInt(fam.ID, 10), nil))
	}

	saved, err := h.settings.Save(userID, st)
	if err != nil {
		h.logger.Error("save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
