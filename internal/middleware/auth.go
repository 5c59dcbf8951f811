package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/store"
)

const SessionCookieName = "foodian_session"

// SessionToken returns the session token from the cookie or a Bearer header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// RequireAuth validates the session and populates AuthContext.
// A user without a family passes with FamilyID 0.
func RequireAuth(sessionStore *store.SessionStore, familyStore *store.FamilyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "login expired")
				return
			}

			sess, err := sessionStore.GetByToken(token)
			if err != nil || sess == nil {
				writeError(w, http.StatusUnauthorized, "login expired")
				return
			}

			ac := auth.AuthContext{
				UserID:    sess.UserID,
				SessionID: sess.ID,
				Token:     token,
			}
			fam, role, err := familyStore.GetForUser(sess.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to load family")
				return
			}
			if fam != nil {
				ac.FamilyID = fam.ID
				ac.Role = role
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// RequireFamily rejects callers that have not created or joined a family.
func RequireFamily(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.FamilyID(r.Context()) == 0 {
			writeError(w, http.StatusForbidden, "family required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLeader checks that the caller leads their family.
func RequireLeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsLeader(r.Context()) {
			writeError(w, http.StatusForbidden, "leader only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets through only users for which isAdmin reports true.
func RequireAdmin(isAdmin func(userID int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdmin(auth.UserID(r.Context())) {
				writeError(w, http.StatusForbidden, "admin only")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
