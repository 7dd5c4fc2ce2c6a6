package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tleroux/skyjo-server/internal/auth"
	"github.com/tleroux/skyjo-server/internal/cache"
	"github.com/tleroux/skyjo-server/internal/config"
	"github.com/tleroux/skyjo-server/internal/database"
	"github.com/tleroux/skyjo-server/internal/game"
	"github.com/tleroux/skyjo-server/internal/httpapi"
	"github.com/tleroux/skyjo-server/internal/matchmaking"
	"github.com/tleroux/skyjo-server/internal/ws"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timings := game.Timings{
		LeaveGrace:          cfg.LeaveGrace,
		ConnectionLostGrace: cfg.ConnectionLostGrace,
		KickVoteTTL:         cfg.KickVoteTTL,
		RoundRestartDelay:   cfg.RoundRestartDelay,
	}

	var store game.Store = game.NopStore{}
	if cfg.DatabaseURL != "" {
		pg, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logrus.WithError(err).Fatal("database connection failed")
		}
		defer pg.Close()
		store = pg
	} else {
		logrus.Warn("no DATABASE_URL set, sessions are memory-only")
	}

	var historian game.Historian
	if h := cache.NewHistorian(cfg.RedisAddr, cfg.RedisPass); h != nil {
		defer h.Close()
		historian = h
	} else {
		logrus.Warn("no REDIS_ADDR set, action history disabled")
	}

	registry := game.NewRegistry(store, timings)
	hub := ws.NewHub()
	core := game.NewHandler(registry, hub, historian, timings)
	signer := auth.NewSigner(cfg.JWTSecret)
	finder := matchmaking.NewFinder(registry)

	go registry.RunSweeper(ctx, cfg.SweepInterval, cfg.SessionMaxIdle)

	api := httpapi.NewAPI(core, finder, signer)
	wsHandler := ws.NewHandler(hub, core, signer)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Routes(wsHandler),
	}

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown incomplete")
	}
}
