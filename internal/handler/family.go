package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/email"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/setting"
	"github.com/foodian-app/foodian/internal/store"
	"github.com/foodian-app/foodian/internal/websocket"
)

type FamilyHandler struct {
	families *store.FamilyStore
	users    *store.UserStore
	invites  *auth.InviteSigner
	email    *email.Client
	linkBase string
	notifier
}

func NewFamilyHandler(
	fs *store.FamilyStore,
	us *store.UserStore,
	invites *auth.InviteSigner,
	ec *email.Client,
	linkBase string,
	hub *websocket.Hub,
	logger *slog.Logger,
) *FamilyHandler {
	return &FamilyHandler{
		families: fs,
		users:    us,
		invites:  invites,
		email:    ec,
		linkBase: strings.TrimRight(linkBase, "/"),
		notifier: notifier{hub: hub, logger: logger},
	}
}

// familyResponse is the create/conflict shape. Member is the family's leader.
type familyResponse struct {
	ID       int64              `json:"id"`
	Name     string             `json:"name"`
	Code     string             `json:"code"`
	Member   model.FamilyMember `json:"member"`
	Storages []model.Storage    `json:"storages"`
}

type familyWithRole struct {
	Family *model.Family `json:"family"`
	Role   model.Role    `json:"role"`
}

// memberParam checks the memberId query parameter against the session user.
// The client treats the resulting 400 as an expired login.
func memberParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("memberId"), 10, 64)
	if err != nil || id != auth.UserID(r.Context()) {
		writeError(w, http.StatusBadRequest, "invalid memberId")
		return 0, false
	}
	return id, true
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := memberParam(w, r)
	if !ok {
		return
	}
	fam, role, err := h.families.GetForUser(userID)
	if err != nil {
		h.logger.Error("get family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}
	if fam == nil {
		writeError(w, http.StatusNotFound, "no family")
		return
	}
	writeJSON(w, http.StatusOK, familyWithRole{Family: fam, Role: role})
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := memberParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		user, err := h.users.GetByID(userID)
		if err != nil || user == nil {
			h.logger.Error("get user", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create family")
			return
		}
		name = fmt.Sprintf("%s's family", user.Name)
	}

	fam, err := h.families.Create(userID, name)
	if errors.Is(err, store.ErrAlreadyInFamily) {
		existing, _, err := h.families.GetForUser(userID)
		if err != nil || existing == nil {
			h.logger.Error("get existing family", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load family")
			return
		}
		h.writeFamily(w, http.StatusConflict, existing)
		return
	}
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create family")
		return
	}

	h.logger.Info("family created", "family_id", fam.ID, "leader_id", userID)
	h.writeFamily(w, http.StatusCreated, fam)
}

func (h *FamilyHandler) writeFamily(w http.ResponseWriter, status int, fam *model.Family) {
	leader, err := h.families.GetMember(fam.ID, fam.LeaderID)
	if err != nil || leader == nil {
		h.logger.Error("get leader", "family_id", fam.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}
	writeJSON(w, status, familyResponse{
		ID:       fam.ID,
		Name:     fam.Name,
		Code:     fam.Code,
		Member:   *leader,
		Storages: fam.Storages,
	})
}

// Join accepts either a family code or a signed invite token.
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := memberParam(w, r)
	if !ok {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
	token := strings.TrimSpace(r.URL.Query().Get("token"))

	var fam *model.Family
	var err error
	switch {
	case token != "":
		claims, perr := h.invites.Parse(token)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		fam, err = h.families.JoinByID(userID, claims.FamilyID)
	case code != "":
		fam, err = h.families.Join(userID, code)
	default:
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	switch {
	case errors.Is(err, store.ErrInvalidFamilyCode):
		writeError(w, http.StatusBadRequest, "invalid family code")
		return
	case errors.Is(err, store.ErrAlreadyInFamily):
		writeError(w, http.StatusConflict, "already in a family")
		return
	case err != nil:
		h.logger.Error("join family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join family")
		return
	}

	h.logger.Info("family joined", "family_id", fam.ID, "user_id", userID)
	h.broadcast(fam.ID, websocket.NewMessage("member", "joined", strconv.FormatInt(userID, 10), nil))
	writeJSON(w, http.StatusOK, familyWithRole{Family: fam, Role: model.RoleMember})
}

func (h *FamilyHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.families.ListMembers(auth.FamilyID(r.Context()))
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

type inviteResponse struct {
	Code      string    `json:"code"`
	Link      string    `json:"link"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *FamilyHandler) invite(r *http.Request) (*model.Family, *inviteResponse, error) {
	fam, err := h.families.GetByID(auth.FamilyID(r.Context()))
	if err != nil {
		return nil, nil, err
	}
	if fam == nil {
		return nil, nil, store.ErrNotMember
	}
	token, exp, err := h.invites.Issue(fam.ID, fam.Code, time.Now())
	if err != nil {
		return nil, nil, err
	}
	return fam, &inviteResponse{
		Code:      fam.Code,
		Link:      h.linkBase + "/invite/" + token,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}

func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	_, inv, err := h.invite(r)
	if err != nil {
		h.logger.Error("issue invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *FamilyHandler) InviteEmail(w http.ResponseWriter, r *http.Request) {
	if !h.email.Configured() {
		writeError(w, http.StatusServiceUnavailable, "email is not configured")
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(body.Email))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	fam, inv, err := h.invite(r)
	if err != nil {
		h.logger.Error("issue invite", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}
	inviter, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || inviter == nil {
		h.logger.Error("get inviter", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invite")
		return
	}

	if err := h.email.SendInvite(r.Context(), addr.Address, fam.Name, inviter.Name, inv.Link); err != nil {
		h.logger.Error("send invite email", "family_id", fam.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to send invite email")
		return
	}
	writeJSON(w, http.StatusAccepted, inv)
}

// RemoveMember lets the leader remove another member.
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if id == ac.UserID {
		writeError(w, http.StatusBadRequest, "use leave to remove yourself")
		return
	}
	member, err := h.families.GetMember(ac.FamilyID, id)
	if err != nil {
		h.logger.Error("get member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	if _, err := h.families.Leave(id); err != nil {
		h.logger.Error("remove member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	h.logger.Info("member removed", "family_id", ac.FamilyID, "user_id", id)
	if h.hub != nil {
		h.hub.Disconnect(ac.FamilyID, id)
	}
	h.broadcast(ac.FamilyID, websocket.NewMessage("member", "removed", strconv.FormatInt(id, 10), nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	res, err := h.families.Leave(ac.UserID)
	if errors.Is(err, store.ErrNotMember) {
		writeError(w, http.StatusNotFound, "not in a family")
		return
	}
	if err != nil {
		h.logger.Error("leave family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to leave family")
		return
	}

	h.logger.Info("member left", "family_id", res.FamilyID, "user_id", ac.UserID, "family_deleted", res.FamilyDeleted)
	if h.hub != nil {
		h.hub.Disconnect(res.FamilyID, ac.UserID)
	}
	if !res.FamilyDeleted {
		extra := map[string]any{}
		if res.NewLeaderID != 0 {
			extra["newLeaderId"] = res.NewLeaderID
		}
		h.broadcast(res.FamilyID, websocket.NewMessage("member", "left", strconv.FormatInt(ac.UserID, 10), extra))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"familyDeleted": res.FamilyDeleted,
		"newLeaderId":   res.NewLeaderID,
	})
}

func (h *FamilyHandler) UpdateStorages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Storages []model.Storage `json:"storages"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	storages := setting.NormalizeStorages(body.Storages)
	if err := setting.ValidateStorages(storages); err != nil {
		var ve *setting.ValidationError
		errors.As(err, &ve)
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid storages", "fields": ve.Fields})
		return
	}

	familyID := auth.FamilyID(r.Context())
	fam, err := h.families.UpdateStorages(familyID, storages)
	if err != nil {
		h.logger.Error("update storages", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update storages")
		return
	}
	h.broadcast(familyID, websocket.NewMessage("family", "updated", strconv.FormatInt(familyID, 10), nil))
	writeJSON(w, http.StatusOK, fam)
}
