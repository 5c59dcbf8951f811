package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodian-app/foodian/internal/cache"
	"github.com/foodian-app/foodian/internal/config"
	"github.com/foodian-app/foodian/internal/database"
	"github.com/foodian-app/foodian/internal/email"
	"github.com/foodian-app/foodian/internal/logging"
	"github.com/foodian-app/foodian/internal/push"
	"github.com/foodian-app/foodian/internal/server"
)

func main() {
	genVAPID := flag.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	restoreID := flag.Int64("restore", 0, "restore the backup with this id and exit")
	restoreTo := flag.String("restore-to", "", "destination path for -restore")
	flag.Parse()

	if *genVAPID {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.App.LogLevel, cfg.App.IsDevelopment())

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	c := openCache(cfg, logger)
	defer c.Close()

	emailClient := email.NewClient(cfg.Email.PostmarkToken, cfg.Email.From)
	srv := server.New(cfg, db, c, emailClient, logger)

	if *restoreID != 0 {
		if *restoreTo == "" {
			slog.Error("-restore requires -restore-to")
			os.Exit(2)
		}
		if err := srv.BackupManager().Restore(context.Background(), *restoreID, *restoreTo); err != nil {
			slog.Error("restore failed", "id", *restoreID, "error", err)
			os.Exit(1)
		}
		slog.Info("backup restored", "id", *restoreID, "path", *restoreTo)
		return
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(bgCtx)
		defer sched.Stop()
	} else {
		slog.Info("push notifications disabled, VAPID keys not set")
	}
	srv.BackupManager().Start(bgCtx)
	defer srv.BackupManager().Stop()

	// Background cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cleanup(srv)
			case <-bgCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("foodian starting", "addr", httpServer.Addr, "env", cfg.App.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// openCache returns Redis when configured and reachable, memory otherwise.
func openCache(cfg *config.Config, logger *slog.Logger) cache.Cache {
	if cfg.Cache.Type == "redis" {
		rc, err := cache.NewRedisCache(context.Background(), cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: "foodian:",
		})
		if err == nil {
			logger.Info("using redis cache", "addr", cfg.Cache.RedisAddress())
			return rc
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err)
	}
	return cache.NewMemoryCache(time.Minute)
}

func cleanup(srv *server.Server) {
	if n, err := srv.SessionStore().DeleteExpired(); err != nil {
		slog.Error("cleanup expired sessions", "error", err)
	} else if n > 0 {
		slog.Info("cleaned up expired sessions", "count", n)
	}
	if n := srv.RateLimiter().Cleanup(); n > 0 {
		slog.Debug("cleaned up rate limit buckets", "count", n)
	}
	if n, err := srv.PushStore().CleanupSent(time.Now().AddDate(0, 0, -30)); err != nil {
		slog.Error("cleanup sent notifications", "error", err)
	} else if n > 0 {
		slog.Info("cleaned up sent notifications", "count", n)
	}
}
