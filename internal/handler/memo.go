package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/store"
	"github.com/foodian-app/foodian/internal/websocket"
)

const memoCopySeparator = ", "

type MemoHandler struct {
	memos *store.MemoStore
	notifier
}

func NewMemoHandler(ms *store.MemoStore, hub *websocket.Hub, logger *slog.Logger) *MemoHandler {
	return &MemoHandler{memos: ms, notifier: notifier{hub: hub, logger: logger}}
}

type memoBody struct {
	Text string `json:"text"`
}

func (h *MemoHandler) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body memoBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return text, true
}

func (h *MemoHandler) List(w http.ResponseWriter, r *http.Request) {
	memos, err := h.memos.List(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list memos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list memos")
		return
	}
	writeJSON(w, http.StatusOK, memos)
}

func (h *MemoHandler) Create(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}
	ac, _ := auth.FromContext(r.Context())
	m, err := h.memos.Create(ac.FamilyID, ac.UserID, text)
	if err != nil {
		h.logger.Error("create memo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create memo")
		return
	}
	h.broadcast(ac.FamilyID, websocket.NewMessage("memo", "created", m.ID, nil))
	writeJSON(w, http.StatusCreated, m)
}

func (h *MemoHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	m, err := h.memos.Toggle(familyID, r.PathValue("id"))
	h.respondMemo(w, familyID, m, err, "toggled")
}

func (h *MemoHandler) Update(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}
	familyID := auth.FamilyID(r.Context())
	m, err := h.memos.UpdateText(familyID, r.PathValue("id"), text)
	h.respondMemo(w, familyID, m, err, "updated")
}

func (h *MemoHandler) respondMemo(w http.ResponseWriter, familyID int64, m *model.Memo, err error, action string) {
	if err != nil {
		h.logger.Error("update memo", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update memo")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "memo not found")
		return
	}
	h.broadcast(familyID, websocket.NewMessage("memo", action, m.ID, nil))
	writeJSON(w, http.StatusOK, m)
}

func (h *MemoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	id := r.PathValue("id")
	found, err := h.memos.Delete(familyID, id)
	if err != nil {
		h.logger.Error("delete memo", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete memo")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "memo not found")
		return
	}
	h.broadcast(familyID, websocket.NewMessage("memo", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemoHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	familyID := auth.FamilyID(r.Context())
	n, err := h.memos.ClearChecked(familyID)
	if err != nil {
		h.logger.Error("clear checked memos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear memos")
		return
	}
	if n > 0 {
		h.broadcast(familyID, websocket.NewMessage("memo", "cleared", "", map[string]any{"count": n}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

// Copy returns the unchecked memo texts as clipboard text.
func (h *MemoHandler) Copy(w http.ResponseWriter, r *http.Request) {
	memos, err := h.memos.List(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list memos", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list memos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": CopyText(memos)})
}

// CopyText joins the texts of unchecked memos.
func CopyText(memos []model.Memo) string {
	var texts []string
	for _, m := range memos {
		if !m.Checked {
			texts = append(texts, m.Text)
		}
	}
	return strings.Join(texts, memoCopySeparator)
}
