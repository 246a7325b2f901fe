package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/MarcMroz/open-voice-chat/internal/adapters/http"
	wssignal "github.com/MarcMroz/open-voice-chat/internal/adapters/signal"
	"github.com/MarcMroz/open-voice-chat/internal/app"
	"github.com/MarcMroz/open-voice-chat/internal/app/auth"
	"github.com/MarcMroz/open-voice-chat/internal/app/orch"
	"github.com/MarcMroz/open-voice-chat/internal/app/sfu"
	"github.com/MarcMroz/open-voice-chat/internal/config"
	"github.com/MarcMroz/open-voice-chat/internal/core"
	"github.com/MarcMroz/open-voice-chat/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}
	if cfg.Secret == "" {
		cfg.Secret = randomSecret()
		log.Warn().Msg("no session secret configured, cookies will not survive a restart")
	}

	clock := core.SystemClock()
	rooms := app.NewRoomManager(config.LoadRooms(cfg.RoomsFile), clock, app.VoteSettings{
		Window:   cfg.Vote.Window,
		Cooldown: cfg.Vote.Cooldown,
	})
	guard := auth.NewGuard(auth.Config{
		Throttle: auth.ThrottleConfig{
			MaxAttempts: cfg.Auth.MaxAttempts,
			BlockWindow: cfg.Auth.BlockWindow,
			Retention:   cfg.Auth.FailureRetention,
		},
		MinIterations: cfg.Auth.MinIterations,
		KeyLength:     cfg.Auth.KeyLength,
		Workers:       cfg.Auth.Workers,
	}, clock)

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Bans:     app.NewBanList(),
		Guard:    guard,
		Policy:   app.SimplePolicy{},
		Relays:   sfu.NewRelayManager(),
		Clock:    clock,
		Settings: orch.Settings{
			BanDuration:    cfg.Vote.BanDuration,
			KickGrace:      cfg.Vote.KickGrace,
			BanNoticeGrace: cfg.Ban.NoticeGrace,
		},
	}
	ctrl := wssignal.NewSignalWSController(o,
		wssignal.NewRateLimiter(cfg.Chat.RateLimit, cfg.Chat.RateWindow, clock),
		wssignal.Settings{
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			ICEServers: cfg.Net.ICEServers,
		})

	r := router.SetupRouter(ctx, cfg, o, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Voice server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if os.Getenv(config.RoomsEnv) == "" {
		g.Go(func() error {
			err := config.WatchRooms(gctx, cfg.RoomsFile, func(list []domain.Room) { rooms.Replace(list) })
			if err != nil {
				// The catalog loaded at startup stays in effect.
				log.Warn().Err(err).Str("module", "config").Msg("rooms hot reload disabled")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("session secret")
	}
	return hex.EncodeToString(b)
}
