// cmd/web/main.go
//
// leadgate – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Console bootstrap logger, signal-aware root context.
//
//  2. Vault client when VAULT_ADDR is set, so `vault:` references in the
//     configuration can be resolved.
//
//  3. Layered configuration (.env → conf/global.yaml → LEADGATE_* → plain
//     deployment names), validated.
//
//  4. Daily rotating JSON logger (tees to console when running in a TTY).
//
//  5. Optional GeoLite2 reader for country tags in lead logs.
//
//  6. Rate-limit store (memory, redis, or mysql) and the limiter on top.
//
//  7. Telegram client and the lead handler.
//
//  8. Root router and the hardened *http.Server.
//
//  9. errgroup: server, graceful shutdown, Vault token renewal, and the
//     mysql window pruner.  SIGINT/SIGTERM cancels the group.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corprag/leadgate/internal/config"
	"github.com/corprag/leadgate/internal/guard"
	"github.com/corprag/leadgate/internal/leads"
	"github.com/corprag/leadgate/internal/logger"
	"github.com/corprag/leadgate/internal/ratelimit"
	"github.com/corprag/leadgate/internal/requestinfo"
	"github.com/corprag/leadgate/internal/routing"
	"github.com/corprag/leadgate/internal/server"
	"github.com/corprag/leadgate/internal/telegram"
	"github.com/corprag/leadgate/internal/vault"
)

const shutdownTimeout = 30 * time.Second

func main() {
	boot := logger.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, boot); err != nil {
		zap.S().Errorw("leadgate stopped", "err", err)
		_ = zap.S().Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, boot *zap.SugaredLogger) error {
	//
	// ── 1.  Vault + configuration ───────────────────────────────────────
	//
	var (
		vc       *vault.Client
		resolver config.SecretResolver
	)
	if vault.Configured() {
		var err error
		if vc, err = vault.New(boot); err != nil {
			return err
		}
		resolver = vc
	}

	cfg, err := config.Load(ctx, resolver)
	if err != nil {
		return err
	}

	//
	// ── 2.  File logger ─────────────────────────────────────────────────
	//
	logDir := cfg.Log.Dir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	log, err := logger.New(logger.Options{
		Dir:   logDir,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Tee || logger.RunningInTTY(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			log.Warnw("geo lookup disabled", "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	//
	// ── 3.  Rate limiter ────────────────────────────────────────────────
	//
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	limiter, err := ratelimit.New(st.store, cfg.Leads.RateLimit.MaxRequests, cfg.Leads.RateLimit.Window)
	if err != nil {
		return err
	}

	//
	// ── 4.  Delivery + lead handler ─────────────────────────────────────
	//
	tg := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
		telegram.WithBaseURL(cfg.Telegram.APIBase),
		telegram.WithLogger(log),
	)
	if !tg.Configured() {
		log.Warnw("telegram credentials missing; submissions will answer 503")
	}

	leadHandler := leads.NewHandler(log, limiter, tg, leads.Options{
		AllowedOrigins: guard.ParseOrigins(cfg.Leads.AllowedOrigins),
		MaxBodyBytes:   cfg.Leads.MaxBodyBytes,
		SecureCookie:   cfg.Production(),
	})

	//
	// ── 5.  HTTP server ─────────────────────────────────────────────────
	//
	router := routing.New(routing.Options{
		Log:        log,
		Production: cfg.Production(),
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
	}, leadHandler)
	srv := server.New(cfg.HTTP.ListenAddr, router)

	//
	// ── 6.  Lifecycle ───────────────────────────────────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Infow("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if vc != nil {
		g.Go(func() error { return vc.RenewLoop(gctx) })
	}
	if st.sql != nil {
		g.Go(func() error { return pruneLoop(gctx, st.sql, cfg.Leads.RateLimit.Window, log) })
	}

	return g.Wait()
}
