package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foodian-app/foodian/internal/auth"
	"github.com/foodian-app/foodian/internal/backup"
	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/config"
	"github.com/foodian-app/foodian/internal/email"
	"github.com/foodian-app/foodian/internal/handler"
	"github.com/foodian-app/foodian/internal/middleware"
	"github.com/foodian-app/foodian/internal/push"
	"github.com/foodian-app/foodian/internal/store"
	"github.com/foodian-app/foodian/internal/web"
	ws "github.com/foodian-app/foodian/internal/websocket"
)

const (
	authRateLimit     = 10
	authRateWindow    = time.Minute
	inviteEmailLimit  = 5
	inviteEmailWindow = time.Hour
)

type Server struct {
	cfg            *config.Config
	hub            *ws.Hub
	authH          *handler.AuthHandler
	familyH        *handler.FamilyHandler
	settingH       *handler.SettingHandler
	itemH          *handler.ItemHandler
	memoH          *handler.MemoHandler
	homeH          *handler.HomeHandler
	statsH         *handler.StatsHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	web            *web.Handler
	sessionStore   *store.SessionStore
	familyStore    *store.FamilyStore
	pushStore      *store.PushStore
	rateLimiter    *middleware.RateLimiter
	backupManager  *backup.Manager
	pushScheduler  *push.Scheduler
	originPatterns []string
	logger         *slog.Logger
}

func New(cfg *config.Config, db *sql.DB, c cache.Cache, emailClient *email.Client, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	familyStore := store.NewFamilyStore(db)
	sessionStore := store.NewSessionStore(db, cfg.Session.TTL)
	settingsStore := store.NewSettingsStore(db)
	itemStore := store.NewItemStore(db)
	memoStore := store.NewMemoStore(db)
	activityStore := store.NewActivityStore(db)
	eventStore := store.NewEventStore(db)
	pushSt := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	kakao := auth.NewKakaoClient(cfg.Kakao.ClientID, cfg.Kakao.ClientSecret, cfg.Kakao.RedirectURL,
		cfg.Kakao.AuthURL, cfg.Kakao.TokenURL, cfg.Kakao.ProfileURL)
	invites := auth.NewInviteSigner(cfg.Invite.Secret, cfg.Invite.TTL)

	backupLogger := logger.With("component", "backup")
	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.Endpoint,
			Bucket:    cfg.Backup.Bucket,
			Region:    cfg.Backup.Region,
			AccessKey: cfg.Backup.AccessKey,
			SecretKey: cfg.Backup.SecretKey,
		},
		Passphrase:    cfg.Backup.Passphrase,
		Hour:          cfg.Backup.Hour,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, backupStore, backupLogger, func(s backup.Status) {
		backupLogger.Info("backup status", "state", s.State, "error", s.Error)
	})

	// Push notification service + scheduler
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushLogger := logger.With("component", "push")
		pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		pushSched = push.NewScheduler(pushSvc, pushSt, itemStore, settingsStore, eventStore, c, cfg.Push.Interval, pushLogger)
		pushH = handler.NewPushHandler(pushSt, pushSvc.VAPIDPublicKey(), pushSched, logger.With("component", "push_handler"))
	}

	return &Server{
		cfg:      cfg,
		hub:      hub,
		authH:    handler.NewAuthHandler(userStore, familyStore, sessionStore, settingsStore, kakao, c, cfg.Session.Secure, logger.With("component", "auth")),
		familyH:  handler.NewFamilyHandler(familyStore, userStore, invites, emailClient, cfg.Invite.LinkBase, hub, logger.With("component", "family")),
		settingH: handler.NewSettingHandler(settingsStore, familyStore, hub, logger.With("component", "setting")),
		itemH:    handler.NewItemHandler(itemStore, familyStore, hub, c, logger.With("component", "item")),
		memoH:    handler.NewMemoHandler(memoStore, hub, logger.With("component", "memo")),
		homeH:    handler.NewHomeHandler(itemStore, memoStore, activityStore, logger.With("component", "home")),
		statsH:   handler.NewStatsHandler(eventStore, c, cfg.Cache.TTL, logger.With("component", "stats")),
		pushH:    pushH,
		backupH:  handler.NewBackupHandler(backupMgr, backupLogger),
		web:      web.New(cfg.Server.ClientDir, logger.With("component", "web")),

		sessionStore:   sessionStore,
		familyStore:    familyStore,
		pushStore:      pushSt,
		rateLimiter:    middleware.NewRateLimiter(),
		backupManager:  backupMgr,
		pushScheduler:  pushSched,
		originPatterns: originHosts(cfg.Server.AllowedOrigins),
		logger:         logger,
	}
}

// originHosts turns allowed origins into the host patterns websocket.Accept expects.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushStore returns the push store for cleanup tasks.
func (s *Server) PushStore() *store.PushStore {
	return s.pushStore
}

// PushScheduler returns the expiry alert scheduler, or nil when VAPID keys are missing.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	signupLimit := middleware.RateLimit(s.rateLimiter, middleware.Scoped("signup", middleware.ByIP), authRateLimit, authRateWindow)
	loginLimit := middleware.RateLimit(s.rateLimiter, middleware.Scoped("login", middleware.ByIP), authRateLimit, authRateWindow)

	// Public routes (no auth required)
	mux.Handle("POST /signup", signupLimit(http.HandlerFunc(s.authH.Signup)))
	mux.Handle("POST /login", loginLimit(http.HandlerFunc(s.authH.Login)))
	mux.HandleFunc("GET /login", s.loginGet)
	mux.HandleFunc("GET /kakao/authorize", s.authH.KakaoAuthorize)
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /assets/", s.web.Assets)
	mux.Handle("GET /", s.web)

	s.registerProtectedRoutes(mux)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	var h http.Handler = mux
	h = corsHandler(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = chimw.RequestID(h)
	h = chimw.Recoverer(h)
	return h
}

// loginGet is both the Kakao redirect target and the login page.
func (s *Server) loginGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("code") {
		s.authH.KakaoLogin(w, r)
		return
	}
	s.web.ServeHTTP(w, r)
}

// pageOr serves the client page for browser navigations to a path that is
// also an API endpoint.
func (s *Server) pageOr(api http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if web.WantsHTML(r) {
			s.web.ServeHTTP(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.sessionStore, s.familyStore)
	authed := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }
	family := func(h http.HandlerFunc) http.Handler { return requireAuth(middleware.RequireFamily(h)) }
	leader := func(h http.HandlerFunc) http.Handler { return requireAuth(middleware.RequireLeader(h)) }
	admin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(s.cfg.App.IsAdmin)(h))
	}
	inviteLimit := middleware.RateLimit(s.rateLimiter, middleware.Scoped("invite-email", middleware.ByUser), inviteEmailLimit, inviteEmailWindow)

	mux.Handle("GET /me", authed(s.authH.Me))

	// Family routes
	mux.Handle("GET /family", authed(s.familyH.Get))
	mux.Handle("POST /family", authed(s.familyH.Create))
	mux.Handle("POST /family/join", authed(s.familyH.Join))
	mux.Handle("GET /family/members", family(s.familyH.Members))
	mux.Handle("DELETE /family/members/{id}", leader(s.familyH.RemoveMember))
	mux.Handle("GET /family/invite", family(s.familyH.Invite))
	mux.Handle("POST /family/invite/email", family(inviteLimit(http.HandlerFunc(s.familyH.InviteEmail)).ServeHTTP))
	mux.Handle("POST /family/leave", family(s.familyH.Leave))
	mux.Handle("PUT /family/storages", leader(s.familyH.UpdateStorages))

	// Settings
	mux.Handle("GET /setting/member/{memberId}", authed(s.settingH.Get))
	mux.Handle("PUT /setting/member/{memberId}", authed(s.settingH.Put))

	// Inventory
	mux.Handle("GET /items", family(s.itemH.List))
	mux.Handle("POST /items", family(s.itemH.Create))
	mux.Handle("GET /items/expiring", family(s.itemH.Expiring))
	mux.Handle("GET /items/{id}", family(s.itemH.Get))
	mux.Handle("PUT /items/{id}", family(s.itemH.Put))
	mux.Handle("PATCH /items/{id}", family(s.itemH.Patch))
	mux.Handle("DELETE /items/{id}", family(s.itemH.Delete))
	mux.Handle("POST /items/{id}/consume", family(s.itemH.Consume))
	mux.Handle("POST /items/{id}/discard", family(s.itemH.Discard))

	// Shopping memo
	mux.Handle("GET /memos", family(s.memoH.List))
	mux.Handle("POST /memos", family(s.memoH.Create))
	mux.Handle("GET /memos/copy", family(s.memoH.Copy))
	mux.Handle("POST /memos/clear-checked", family(s.memoH.ClearChecked))
	mux.Handle("POST /memos/{id}/toggle", family(s.memoH.Toggle))
	mux.Handle("PUT /memos/{id}", family(s.memoH.Update))
	mux.Handle("DELETE /memos/{id}", family(s.memoH.Delete))

	// Home feed and statistics
	mux.Handle("GET /activities", family(s.homeH.Activities))
	mux.Handle("GET /home", s.pageOr(family(s.homeH.Home)))
	mux.Handle("GET /statistics", s.pageOr(family(s.statsH.Get)))

	// Push notification API routes
	if s.pushH != nil {
		mux.Handle("POST /push/subscribe", family(s.pushH.Subscribe))
		mux.Handle("GET /push/subscriptions", authed(s.pushH.ListSubscriptions))
		mux.Handle("DELETE /push/subscriptions/{id}", authed(s.pushH.Unsubscribe))
		mux.Handle("GET /push/vapid-key", authed(s.pushH.VAPIDKey))
		mux.Handle("POST /push/test", authed(s.pushH.Test))
	}

	// Backups span every family: operators only.
	mux.Handle("POST /admin/backup", admin(s.backupH.Run))
	mux.Handle("GET /admin/backups", admin(s.backupH.List))

	// Realtime
	mux.Handle("GET /ws", family(ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket"))))
}
