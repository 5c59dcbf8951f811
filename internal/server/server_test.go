package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/config"
	"github.com/foodian-app/foodian/internal/database"
	"github.com/foodian-app/foodian/internal/email"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testServer(t *testing.T, opts ...func(*config.Config)) (*Server, http.Handler) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() {
		c.Close()
		db.Close()
	})

	cfg := &config.Config{}
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}
	cfg.Server.ClientDir = filepath.Join(t.TempDir(), "dist")
	cfg.Session.TTL = time.Hour
	cfg.Invite.Secret = "test-secret"
	cfg.Invite.TTL = time.Hour
	cfg.Invite.LinkBase = "http://localhost:5173"
	cfg.Cache.TTL = time.Minute
	for _, opt := range opts {
		opt(cfg)
	}

	srv := New(cfg, db, c, email.NewClient("", ""), testLogger)
	return srv, srv.Router()
}

func do(h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, h http.Handler, username string) (string, int64) {
	t.Helper()
	rec := do(h, "POST", "/signup", map[string]string{"username": username, "password": "passw0rd", "name": "Tester"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(h, "POST", "/login", map[string]string{"username": username, "password": "passw0rd"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Next  string `json:"next"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Next != "/familySetup" {
		t.Errorf("next = %q, want /familySetup", resp.Next)
	}
	return resp.Token, resp.User.ID
}

func TestHealth(t *testing.T) {
	_, h := testServer(t)
	rec := do(h, "GET", "/health", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	_, h := testServer(t)
	for _, p := range []string{"/me", "/items", "/memos", "/activities"} {
		if rec := do(h, "GET", p, nil, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", p, rec.Code)
		}
	}
	if rec := do(h, "GET", "/items", nil, "bogus"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d", rec.Code)
	}
}

func TestFamilyFlow(t *testing.T) {
	_, h := testServer(t)
	token, uid := signupAndLogin(t, h, "leader@example.com")

	if rec := do(h, "GET", "/items", nil, token); rec.Code != http.StatusForbidden {
		t.Errorf("items without family status = %d, want 403", rec.Code)
	}

	rec := do(h, "POST", fmt.Sprintf("/family?memberId=%d", uid), map[string]string{"name": "우리집"}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create family status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(h, "POST", "/items", map[string]any{
		"name": "우유", "qty": 2, "storage": "refrigerated", "expireDate": "2099-01-01",
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item status = %d: %s", rec.Code, rec.Body.String())
	}
	var item struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil || item.ID == "" {
		t.Fatalf("decode item: %+v, %v", item, err)
	}

	if rec := do(h, "GET", "/items/expiring", nil, token); rec.Code != http.StatusOK {
		t.Errorf("expiring status = %d", rec.Code)
	}
	if rec := do(h, "POST", "/items/"+item.ID+"/consume", nil, token); rec.Code != http.StatusOK {
		t.Errorf("consume status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "GET", "/home", nil, token); rec.Code != http.StatusOK {
		t.Errorf("home status = %d", rec.Code)
	}
	if rec := do(h, "GET", "/statistics?storage=ALL&days=7", nil, token); rec.Code != http.StatusOK {
		t.Errorf("statistics status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "PUT", "/family/storages", map[string]any{"storages": []string{"refrigerated"}}, token); rec.Code != http.StatusOK {
		t.Errorf("storages status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "POST", "/admin/backup", nil, token); rec.Code != http.StatusForbidden {
		t.Errorf("leader backup status = %d, want 403", rec.Code)
	}

	memberToken, memberID := signupAndLogin(t, h, "member@example.com")
	rec = do(h, "GET", "/family/invite", nil, token)
	var inv struct {
		Code string `json:"code"`
	}
	json.NewDecoder(rec.Body).Decode(&inv)
	rec = do(h, "POST", fmt.Sprintf("/family/join?memberId=%d&code=%s", memberID, inv.Code), nil, memberToken)
	if rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
		t.Fatalf("join status = %d: %s", rec.Code, rec.Body.String())
	}
	if rec := do(h, "PUT", "/family/storages", map[string]any{"storages": []string{"frozen"}}, memberToken); rec.Code != http.StatusForbidden {
		t.Errorf("member storages status = %d, want 403", rec.Code)
	}
	if rec := do(h, "GET", "/admin/backups", nil, memberToken); rec.Code != http.StatusForbidden {
		t.Errorf("member backups status = %d, want 403", rec.Code)
	}
}

func TestAdminBackupRoutes(t *testing.T) {
	_, h := testServer(t, func(cfg *config.Config) {
		cfg.App.AdminUserIDs = []int64{1}
	})
	adminToken, adminID := signupAndLogin(t, h, "ops@example.com")
	if adminID != 1 {
		t.Fatalf("first user id = %d, want 1", adminID)
	}
	userToken, userID := signupAndLogin(t, h, "user@example.com")
	if rec := do(h, "POST", fmt.Sprintf("/family?memberId=%d", userID), nil, userToken); rec.Code != http.StatusCreated {
		t.Fatalf("create family status = %d", rec.Code)
	}

	if rec := do(h, "POST", "/admin/backup", nil, userToken); rec.Code != http.StatusForbidden {
		t.Errorf("family leader backup status = %d, want 403", rec.Code)
	}
	if rec := do(h, "GET", "/admin/backups", nil, userToken); rec.Code != http.StatusForbidden {
		t.Errorf("family leader list status = %d, want 403", rec.Code)
	}
	if rec := do(h, "POST", "/admin/backup", nil, adminToken); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("admin backup without S3 status = %d, want 503", rec.Code)
	}
	if rec := do(h, "GET", "/admin/backups", nil, adminToken); rec.Code != http.StatusOK {
		t.Errorf("admin list status = %d, want 200", rec.Code)
	}
}

func TestPushRoutesAbsentWithoutVAPID(t *testing.T) {
	srv, h := testServer(t)
	if srv.PushScheduler() != nil {
		t.Fatal("scheduler built without VAPID keys")
	}
	token, _ := signupAndLogin(t, h, "push@example.com")
	rec := do(h, "GET", "/push/vapid-key", nil, token)
	if rec.Code == http.StatusOK {
		t.Errorf("vapid-key served without push configured")
	}
}

func TestClientPages(t *testing.T) {
	_, h := testServer(t)

	req := httptest.NewRequest("GET", "/home", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("page /home status %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = do(h, "GET", "/login", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("login page status = %d", rec.Code)
	}

	rec = do(h, "GET", "/does-not-exist", nil, "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Errorf("unknown path status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestKakaoLoginWithoutConfig(t *testing.T) {
	_, h := testServer(t)
	if rec := do(h, "GET", "/kakao/authorize", nil, ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("authorize status = %d, want 503", rec.Code)
	}
	if rec := do(h, "GET", "/login?code=abc", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("kakao exchange status = %d, want 401", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	_, h := testServer(t)
	var last int
	for i := 0; i < authRateLimit+1; i++ {
		rec := do(h, "POST", "/login", map[string]string{"username": "x@example.com", "password": "wrong1234"}, "")
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after limit = %d, want 429", last)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, h := testServer(t)
	req := httptest.NewRequest("OPTIONS", "/items", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials not allowed")
	}
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:5173", "https://foodian.app", "not a url"})
	if len(got) != 2 || got[0] != "localhost:5173" || got[1] != "foodian.app" {
		t.Errorf("originHosts = %v", got)
	}
}
