package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/store"
)

// testSender delivers a test notification to a user's devices.
type testSender interface {
	SendTest(ctx context.Context, userID int64) (int, error)
}

type PushHandler struct {
	pushStore *store.PushStore
	publicKey string
	tester    testSender
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, publicKey string, tester testSender, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, publicKey: publicKey, tester: tester, logger: logger}
}

// subscribeRequest accepts the browser's PushSubscription JSON, whose keys are
// nested, as well as flat p256dh/auth fields.
type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"deviceName"`
}

func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p256dh, authKey := req.Keys.P256dh, req.Keys.Auth
	if p256dh == "" {
		p256dh = req.P256dh
	}
	if authKey == "" {
		authKey = req.Auth
	}
	if strings.TrimSpace(req.Endpoint) == "" || p256dh == "" || authKey == "" {
		writeError(w, http.StatusBadRequest, "endpoint, p256dh, and auth are required")
		return
	}

	sub, err := h.pushStore.CreateSubscription(ac.UserID, ac.FamilyID, req.Endpoint, p256dh, authKey, req.DeviceName)
	if err != nil {
		h.logger.Error("create push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	found, err := h.pushStore.DeleteSubscription(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("delete push subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.publicKey})
}

func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	sent, err := h.tester.SendTest(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("test push", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send test notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
