// Package web serves the single-page client: known client paths get
// index.html, /assets/ is served from disk and every other GET goes to /login.
package web

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Paths are the routes the client renders itself.
var Paths = []string{
	"/",
	"/login",
	"/signup",
	"/kakao-auth",
	"/familySetup",
	"/home",
	"/onboarding",
	"/member",
	"/fridge",
	"/setting",
	"/statistics",
}

const placeholder = `<!doctype html>
<html lang="ko">
<head><meta charset="utf-8"><title>Foodian</title></head>
<body><div id="root">Foodian client is not built.</div></body>
</html>
`

type Handler struct {
	index  []byte
	assets http.Handler
	logger *slog.Logger
}

// New loads index.html from dir. A missing build falls back to a placeholder page.
func New(dir string, logger *slog.Logger) *Handler {
	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("read client index", "dir", dir, "error", err)
		} else {
			logger.Info("client build not found, serving placeholder", "dir", dir)
		}
		index = []byte(placeholder)
	}
	return &Handler{
		index:  index,
		assets: http.StripPrefix("/assets/", http.FileServer(http.Dir(filepath.Join(dir, "assets")))),
		logger: logger,
	}
}

// IsPath reports whether p is rendered by the client.
func IsPath(p string) bool {
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return slices.Contains(Paths, p)
}

// WantsHTML reports whether the request comes from a browser navigation
// rather than an API call. Paths shared by a page and an endpoint use it.
func WantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// Assets serves the client's static files under /assets/.
func (h *Handler) Assets(w http.ResponseWriter, r *http.Request) {
	h.assets.ServeHTTP(w, r)
}

// ServeHTTP renders client pages and redirects unknown paths to /login.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !IsPath(r.URL.Path) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(h.index)
}
