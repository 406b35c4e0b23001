package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brewpoint/pos-edge/internal/api"
	"github.com/brewpoint/pos-edge/internal/api/metrics"
	"github.com/brewpoint/pos-edge/internal/api/ws"
	"github.com/brewpoint/pos-edge/internal/core/domain"
	"github.com/brewpoint/pos-edge/internal/core/service"
	"github.com/brewpoint/pos-edge/internal/infrastructure/config"
	redisinfra "github.com/brewpoint/pos-edge/internal/infrastructure/db/redis"
	"github.com/brewpoint/pos-edge/internal/infrastructure/upstream"
	"github.com/brewpoint/pos-edge/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---
	rdb, err := redisinfra.Connect(ctx, redisinfra.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	bus := redisinfra.NewSignalBus(rdb, cfg.Redis.Namespace, log)
	store := redisinfra.NewStateStore(rdb, cfg.Redis.Namespace, bus)
	debounce := redisinfra.NewDebounceStore(rdb, cfg.Redis.Namespace, cfg.Auth.SignatureDebounce)
	dedup := redisinfra.NewDedupStore(rdb, cfg.Redis.Namespace, 0)
	backend := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, log)

	// --- Core services ---
	session := service.NewAuthSession(store, bus, backend, service.NewTokenValidator(), cfg.Auth.MaxAuthErrors, log,
		service.WithRefreshThreshold(cfg.Auth.RefreshThreshold))
	fallback := service.NewFallbackStore(store, bus, log)
	recovery := service.NewRecovery(session, fallback, debounce, log)
	monitor := service.NewConnectivityMonitor(backend, store, log,
		service.WithProbeIntervals(0, cfg.Auth.RecoverCooldown),
		service.WithProbeObserver(func(d time.Duration, err error) {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			metrics.ProbeDuration.WithLabelValues(outcome).Observe(d.Seconds())
		}))
	gateway := service.NewGateway(backend, session, recovery, fallback, monitor, cfg.Upstream.Timeout, log)

	session.Restore(ctx)
	if fallback.Active(ctx) {
		monitor.SetDegraded(ctx, "fallback mode restored from store")
	}

	// --- Status stream and signal fan-out ---
	hub := ws.NewHub(log)
	go hub.Run(ctx)
	go monitor.Run(ctx, cfg.Auth.ProbeInterval)

	monitor.Subscribe(func(state domain.ConnectivityState) {
		for _, status := range []domain.ConnectivityStatus{domain.StatusOnline, domain.StatusOffline, domain.StatusDegraded} {
			val := 0.0
			if status == state.Status {
				val = 1.0
			}
			metrics.ConnectivityState.WithLabelValues(string(status)).Set(val)
		}
		payload, _ := json.Marshal(state)
		hub.Broadcast(ws.Event{Type: "connectivity", Data: payload, At: time.Now().UTC()})
	})

	go bus.Run(ctx, func(sig domain.Signal) {
		metrics.SignalsTotal.WithLabelValues(string(sig.Kind)).Inc()
		switch sig.Kind {
		case domain.SignalFallbackEnabled:
			metrics.FallbackActivationsTotal.Inc()
			monitor.SetDegraded(ctx, "fallback mode active")
		case domain.SignalFallbackDisabled:
			monitor.ClearDegraded(ctx)
		case domain.SignalTokenRefreshed:
			metrics.TokenRefreshesTotal.WithLabelValues("ok").Inc()
		}
		payload, _ := json.Marshal(sig)
		hub.Broadcast(ws.Event{Type: "signal", Data: payload, At: sig.At})
	})

	// --- HTTP server ---
	e := api.NewRouter(api.Services{
		Session:  session,
		Gateway:  gateway,
		Fallback: fallback,
		Recovery: recovery,
		Monitor:  monitor,
		Dedup:    dedup,
	}, rdb, hub, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("upstream", cfg.Upstream.BaseURL).Msg("pos-edge gateway started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}
