package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/database"
	"github.com/foodian-app/foodian/internal/model"
	"github.com/foodian-app/foodian/internal/store"
	"github.com/foodian-app/foodian/internal/websocket"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type authCtx = auth.AuthContext

type fixture struct {
	db         *sql.DB
	users      *store.UserStore
	families   *store.FamilyStore
	sessions   *store.SessionStore
	settings   *store.SettingsStore
	items      *store.ItemStore
	memos      *store.MemoStore
	activities *store.ActivityStore
	events     *store.EventStore
	push       *store.PushStore
	hub        *websocket.Hub
	cache      *cache.MemoryCache
}

func setup(t *testing.T) *fixture {
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
	return &fixture{
		db:         db,
		users:      store.NewUserStore(db),
		families:   store.NewFamilyStore(db),
		sessions:   store.NewSessionStore(db, time.Hour),
		settings:   store.NewSettingsStore(db),
		items:      store.NewItemStore(db),
		memos:      store.NewMemoStore(db),
		activities: store.NewActivityStore(db),
		events:     store.NewEventStore(db),
		push:       store.NewPushStore(db),
		hub:        websocket.NewHub(testLogger),
		cache:      c,
	}
}

func (fx *fixture) user(t *testing.T, username, name string) *model.User {
	t.Helper()
	u, err := fx.users.Create(username, "", name)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// leader creates a user leading a new family and returns its auth context.
func (fx *fixture) leader(t *testing.T) auth.AuthContext {
	t.Helper()
	u := fx.user(t, "leader@example.com", "Leader")
	fam, err := fx.families.Create(u.ID, "우리집")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	return auth.AuthContext{UserID: u.ID, FamilyID: fam.ID, Role: model.RoleLeader}
}

// member adds a MEMBER to familyID.
func (fx *fixture) member(t *testing.T, familyID int64, username string) auth.AuthContext {
	t.Helper()
	u := fx.user(t, username, "Member")
	if _, err := fx.families.JoinByID(u.ID, familyID); err != nil {
		t.Fatalf("join family: %v", err)
	}
	return auth.AuthContext{UserID: u.ID, FamilyID: familyID, Role: model.RoleMember}
}

// request builds a request carrying ac and an optional JSON body.
func request(method, target string, body any, ac auth.AuthContext) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	return req.WithContext(auth.WithAuth(context.Background(), ac))
}

func rawRequest(method, target, body string, ac auth.AuthContext) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	return req.WithContext(auth.WithAuth(context.Background(), ac))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (status %d)", err, rec.Code)
	}
	return v
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// fixedNow is 2026-03-01 09:00 KST.
var fixedNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
