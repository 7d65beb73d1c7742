package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/polite-betrayal/judge/internal/auth"
	"github.com/freeeve/polite-betrayal/judge/internal/config"
	"github.com/freeeve/polite-betrayal/judge/internal/handler"
	"github.com/freeeve/polite-betrayal/judge/internal/logger"
	"github.com/freeeve/polite-betrayal/judge/internal/repository"
	"github.com/freeeve/polite-betrayal/judge/internal/repository/memory"
	"github.com/freeeve/polite-betrayal/judge/internal/repository/postgres"
	redisrepo "github.com/freeeve/polite-betrayal/judge/internal/repository/redis"
	"github.com/freeeve/polite-betrayal/judge/internal/rules"
	"github.com/freeeve/polite-betrayal/judge/internal/service"
)

const defaultJWTSecret = "dev-secret-change-me"

// backend bundles the storage a JudgeService runs on.
type backend struct {
	games  repository.GameRepository
	phases repository.PhaseRepository
	cache  repository.GameCache
	events service.ExpirySubscriber // nil without Redis
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Dev: cfg.Dev})
	log.Info().Str("port", cfg.Port).Bool("memory", cfg.MemoryBackend).Str("rulesFile", cfg.RulesFile).Msg("Config loaded")
	if cfg.JWTSecret == defaultJWTSecret && !cfg.Dev {
		log.Warn().Msg("JWT_SECRET is the development default; seat tokens can be forged")
	}

	defaults, err := rules.Load(cfg.RulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load rules")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Storage unavailable")
	}
	defer store.close()

	// WebSocket hub
	wsHub := handler.NewHub()

	judge := service.NewJudgeService(store.games, store.phases, store.cache, wsHub, service.Options{
		Rules:   defaults,
		LockTTL: cfg.ResolveLock,
	})

	// Recover active games (rehydrate the cache from Postgres after restart)
	if err := judge.RecoverActiveGames(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to recover active games (non-fatal)")
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(judge, jwtMgr, wsHub, cfg.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	timerListener := service.NewTimerListener(judge, store.phases, store.events, cfg.PollInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return timerListener.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
		store.close()
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.MemoryBackend {
		log.Warn().Msg("Using in-memory storage; games are lost on restart")
		games := memory.NewGameRepo()
		return &backend{
			games:  games,
			phases: memory.NewPhaseRepo(games),
			cache:  memory.NewCache(),
			close:  func() {},
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	redisClient, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	// Keyspace notifications drive deadline resolution; the poller covers
	// for them when the server refuses CONFIG SET.
	if err := redisClient.EnableExpiryEvents(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to set Redis keyspace notifications (deadlines fall back to polling)")
	}

	return &backend{
		games:  postgres.NewGameRepo(db),
		phases: postgres.NewPhaseRepo(db),
		cache:  redisClient,
		events: redisClient,
		close: func() {
			redisClient.Close()
			db.Close()
		},
	}, nil
}
