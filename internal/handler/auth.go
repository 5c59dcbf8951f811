package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/middleware"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/store"
)

const (
	kakaoStatePrefix = "kakao_state:"
	kakaoStateTTL    = 10 * time.Minute
)

// Client paths returned as "next" after a successful login.
const (
	nextFamilySetup = "/familySetup"
	nextOnboarding  = "/onboarding"
	nextHome        = "/home"
)

type AuthHandler struct {
	users        *store.UserStore
	families     *store.FamilyStore
	sessions     *store.SessionStore
	settings     *store.SettingsStore
	kakao        *auth.KakaoClient
	states       cache.Cache
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	fs *store.FamilyStore,
	ss *store.SessionStore,
	sts *store.SettingsStore,
	kakao *auth.KakaoClient,
	states cache.Cache,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:        us,
		families:     fs,
		sessions:     ss,
		settings:     sts,
		kakao:        kakao,
		states:       states,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type loginResponse struct {
	User  *model.User `json:"user"`
	Next  string      `json:"next"`
	Token string      `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in auth.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := auth.ValidateSignup(&in); fields != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid signup", "fields": fields})
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	user, err := h.users.Create(in.Username, hash, in.Name)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.ToLower(strings.TrimSpace(body.Username))
	if username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.users.GetByUsername(username)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, body.Password) != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	h.startSession(w, user)
}

// KakaoAuthorize redirects to the Kakao consent page with a fresh state value.
func (h *AuthHandler) KakaoAuthorize(w http.ResponseWriter, r *http.Request) {
	if !h.kakao.Configured() {
		writeError(w, http.StatusServiceUnavailable, "kakao login is not configured")
		return
	}
	state, err := auth.NewState()
	if err != nil {
		h.logger.Error("kakao state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start kakao login")
		return
	}
	if err := h.states.Set(r.Context(), kakaoStatePrefix+state, []byte("1"), kakaoStateTTL); err != nil {
		h.logger.Error("store kakao state", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start kakao login")
		return
	}
	http.Redirect(w, r, h.kakao.AuthCodeURL(state), http.StatusFound)
}

// KakaoLogin exchanges the authorization code from the Kakao redirect.
// Every failure is a 401 so the client returns to the login page.
func (h *AuthHandler) KakaoLogin(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" || !h.kakao.Configured() {
		writeError(w, http.StatusUnauthorized, "kakao login failed")
		return
	}
	if state := r.URL.Query().Get("state"); state != "" {
		if _, err := cache.Take(r.Context(), h.states, kakaoStatePrefix+state); err != nil {
			h.logger.Warn("kakao state rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "kakao login failed")
			return
		}
	}

	profile, err := h.kakao.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("kakao exchange", "error", err)
		writeError(w, http.StatusUnauthorized, "kakao login failed")
		return
	}
	user, err := h.users.UpsertKakao(profile.ID, profile.Nickname, profile.ThumbnailURL)
	if err != nil {
		h.logger.Error("upsert kakao user", "error", err)
		writeError(w, http.StatusUnauthorized, "kakao login failed")
		return
	}

	h.startSession(w, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, user *model.User) {
	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	next, err := h.nextPath(user.ID)
	if err != nil {
		h.logger.Error("resolve next path", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{User: user, Next: next, Token: sess.Token})
}

func (h *AuthHandler) nextPath(userID int64) (string, error) {
	fam, _, err := h.families.GetForUser(userID)
	if err != nil {
		return "", err
	}
	if fam == nil {
		return nextFamilySetup, nil
	}
	st, err := h.settings.Get(userID)
	if err != nil {
		return "", err
	}
	if st == nil {
		return nextOnboarding, nil
	}
	return nextHome, nil
}

// Logout is public so a stale cookie can always be cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if sess, err := h.sessions.GetByToken(token); err == nil && sess != nil {
			if err := h.sessions.Delete(sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "login expired")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
