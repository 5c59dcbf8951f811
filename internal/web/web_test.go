package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeDist(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=app></div>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestServeKnownPaths(t *testing.T) {
	h := New(writeDist(t), testLogger)
	for _, p := range append(Paths, "/fridge/") {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", p, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "<div id=app></div>" {
			t.Errorf("%s: status %d body %q", p, rec.Code, rec.Body.String())
		}
	}
}

func TestUnknownPathRedirects(t *testing.T) {
	h := New(writeDist(t), testLogger)
	for _, p := range []string{"/nope", "/home/extra", "/invite"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", p, nil))
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
			t.Errorf("%s: status %d location %q", p, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestAssets(t *testing.T) {
	h := New(writeDist(t), testLogger)
	rec := httptest.NewRecorder()
	h.Assets(rec, httptest.NewRequest("GET", "/assets/app.js", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "console.log(1)" {
		t.Errorf("status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestPlaceholderWithoutBuild(t *testing.T) {
	h := New(filepath.Join(t.TempDir(), "missing"), testLogger)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/home", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Foodian") {
		t.Errorf("status %d body %q", rec.Code, rec.Body.String())
	}
}

func TestWantsHTML(t *testing.T) {
	r := httptest.NewRequest("GET", "/home", nil)
	if WantsHTML(r) {
		t.Error("plain request treated as navigation")
	}
	r.Header.Set("Accept", "text/html,application/xhtml+xml")
	if !WantsHTML(r) {
		t.Error("browser navigation not detected")
	}
}
