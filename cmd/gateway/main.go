package main

import (
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bookmart/internal/apiclient"
	"bookmart/internal/cart"
	"bookmart/internal/config"
	"bookmart/internal/server"
	"bookmart/internal/session"
	"bookmart/internal/snapshot"
	"bookmart/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	snapshotTTL, err := config.ParseSnapshotTTL(cfg.SnapshotTTL)
	if err != nil {
		log.Fatalf("failed to parse snapshot TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	api := apiclient.New(cfg.APIBaseURL)
	snapshots := newSnapshotStore(cfg, snapshotTTL)

	sessionTTL := session.DefaultTTL
	if cfg.CookieMaxAgeSeconds > 0 {
		sessionTTL = time.Duration(cfg.CookieMaxAgeSeconds) * time.Second
	}
	sessions := session.NewStore(session.Config{
		Domain:   cfg.CookieDomain,
		Secure:   cfg.CookieSecure,
		SameSite: config.ParseSameSite(cfg.CookieSameSite),
		TTL:      sessionTTL,
	})

	httpServer, err := server.New(server.Config{
		API:                        api,
		Sessions:                   sessions,
		Reconciler:                 cart.NewReconciler(api, snapshots),
		RedisAddr:                  cfg.RedisAddr,
		RedisPassword:              cfg.RedisPassword,
		LoginRateLimitPerMinute:    cfg.LoginRateLimitPerMinute,
		RegisterRateLimitPerMinute: cfg.RegisterRateLimitPerMinute,
		TrustedProxies:             trusted,
		DefaultPageLimit:           cfg.DefaultPageLimit,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("gateway listening", "addr", addr, "api", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// newSnapshotStore picks the mirror persistence backend per config.
func newSnapshotStore(cfg config.FileConfig, ttl time.Duration) snapshot.Store {
	switch strings.ToLower(strings.TrimSpace(cfg.SnapshotBackend)) {
	case "postgres":
		store, err := snapshot.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init snapshot database: %v", err)
		}
		return store
	case "memory":
		return snapshot.NewMemoryStore()
	default:
		return snapshot.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "", ttl)
	}
}
