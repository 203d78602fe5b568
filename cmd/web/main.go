// cmd/web/main.go
//
// Folio – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Optional Vault client (only when VAULT_ADDR is set), then config:
//     .env → conf/global.yaml → FOLIO_ env overlay → secret resolution.
//
//  4. Open the ban-store DB and GeoLite2 database.
//
//  5. Build the fetch clients, query store, sponsor and guestbook
//     services, ban gate, and presence hub — all constructed here and
//     injected; no module-level singletons.
//
//  6. Expose Prometheus /metrics and mount the chi router, wrapped with
//     ForceHTTPS so every non-localhost HTTP request is 308-redirected.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/folio/internal/banlist"
	"github.com/yanizio/folio/internal/config"
	"github.com/yanizio/folio/internal/content"
	"github.com/yanizio/folio/internal/database"
	"github.com/yanizio/folio/internal/fetch"
	"github.com/yanizio/folio/internal/guestbook"
	"github.com/yanizio/folio/internal/logger"
	"github.com/yanizio/folio/internal/middleware"
	"github.com/yanizio/folio/internal/presence"
	"github.com/yanizio/folio/internal/query"
	"github.com/yanizio/folio/internal/requestinfo"
	"github.com/yanizio/folio/internal/server"
	"github.com/yanizio/folio/internal/sponsors"
	"github.com/yanizio/folio/internal/vault"
	"github.com/yanizio/folio/internal/web"
)

const (
	serverEnvPath = "/usr/local/etc/folio/global.env"

	// upstreamRetries is the shared retry budget for content fetches.
	upstreamRetries = 2
)

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx := context.Background()

	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 1.  Config (with optional Vault secret resolution) ─────────────
	//
	var secrets config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		cli, err := vault.New(ctx)
		if err != nil {
			logOut.Fatalf("vault client: %v", err)
		}
		secrets = cli
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		logOut.Fatalf("open GeoLite2 DB: %v", err)
	}

	//
	// ── 2.  Ban-store DB ────────────────────────────────────────────────
	//
	logOut.Infow("connecting to ban store")
	banDB, err := database.Open(cfg.Database.DSN())
	if err != nil {
		logOut.Fatalf("connect ban store: %v", err)
	}
	defer banDB.Close()
	gate := banlist.NewGate(banlist.NewSQLStore(banDB))

	//
	// ── 3.  Fetch clients, query store, services ────────────────────────
	//
	cmsClient := fetch.New(map[string]string{
		"Authorization": "Bearer " + cfg.CMS.Token,
		"Accept":        "application/json",
	})
	store := query.New(cmsClient, cfg.CMS.BaseURL, content.DefaultPolicy, upstreamRetries)
	defer store.Close()

	sponsorClient := fetch.New(map[string]string{
		"Authorization": "Bearer " + cfg.Sponsors.Token,
	})
	sponsorSvc := sponsors.New(sponsorClient, cfg.Sponsors.URL, content.DefaultPolicy, upstreamRetries)

	guestClient := fetch.New(nil)
	guestSvc := guestbook.New(guestClient, cfg.Guestbook.URL, content.DefaultPolicy, upstreamRetries)

	//
	// ── 4.  Presence hub ────────────────────────────────────────────────
	//
	hub := presence.NewHub()
	go hub.Run()

	//
	// ── 5.  Router, metrics, HTTPS enforcement ─────────────────────────
	//
	router := web.Router(web.Deps{
		Cfg:       cfg,
		Store:     store,
		Sponsors:  sponsorSvc,
		Guestbook: guestSvc,
		Gate:      gate,
		Hub:       hub,
		Upgrader:  presence.Upgrader(cfg.Presence.AllowedOrigins),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, router))

	srv := server.New(cfg.HTTP.ListenAddr, mux)
	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
	if err := srv.ListenAndServe(); err != nil {
		logOut.Fatalf("http server: %v", err)
	}
}
