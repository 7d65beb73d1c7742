package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/judge/internal/repository"
)

// ExpirySubscriber delivers Redis expiry events.
type ExpirySubscriber interface {
	SubscribeExpired(ctx context.Context) *redis.PubSub
}

// TimerListener resolves phases whose deadline has passed. It listens for
// expired timer keys and also polls the phase history, which catches
// deadlines missed while keyspace notifications were unavailable.
type TimerListener struct {
	judge     *JudgeService
	phaseRepo repository.PhaseRepository
	events    ExpirySubscriber
	interval  time.Duration
}

// NewTimerListener creates a TimerListener. A nil events source leaves
// only the poller.
func NewTimerListener(judge *JudgeService, phaseRepo repository.PhaseRepository, events ExpirySubscriber, interval time.Duration) *TimerListener {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &TimerListener{judge: judge, phaseRepo: phaseRepo, events: events, interval: interval}
}

// Run listens and polls until ctx is cancelled.
func (t *TimerListener) Run(ctx context.Context) error {
	if t.events != nil {
		go t.listenKeyspace(ctx)
	}
	t.pollExpiredPhases(ctx)
	return nil
}

func (t *TimerListener) listenKeyspace(ctx context.Context) {
	pubsub := t.events.SubscribeExpired(ctx)
	defer pubsub.Close()

	log.Info().Msg("Timer listener started, listening for expired keys")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if gameID, ok := gameIDFromTimerKey(msg.Payload); ok {
				log.Info().Str("gameId", gameID).Msg("Timer expired, triggering phase resolution")
				t.resolveDue(ctx, gameID)
			}
		}
	}
}

func (t *TimerListener) pollExpiredPhases(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.interval).Msg("Phase deadline poller started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Phase deadline poller stopped")
			return
		case <-ticker.C:
			t.CheckExpiredPhases(ctx)
		}
	}
}

// CheckExpiredPhases resolves every open phase past its deadline.
func (t *TimerListener) CheckExpiredPhases(ctx context.Context) {
	phases, err := t.phaseRepo.ListExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list expired phases")
		return
	}
	for _, p := range phases {
		log.Info().Str("gameId", p.GameID).Str("phase", label(p.Year, p.Season, p.PhaseType)).
			Msg("Poller resolving expired phase")
		t.resolveDue(ctx, p.GameID)
	}
}

func (t *TimerListener) resolveDue(ctx context.Context, gameID string) {
	_, err := t.judge.ResolveExpired(ctx, gameID)
	switch {
	case err == nil:
	case errors.Is(err, ErrGameLocked), errors.Is(err, ErrGameFinished), errors.Is(err, ErrNotFound):
		log.Debug().Err(err).Str("gameId", gameID).Msg("Skipping deadline resolution")
	default:
		log.Error().Err(err).Str("gameId", gameID).Msg("Deadline resolution failed")
	}
}

// gameIDFromTimerKey extracts the game ID from "game:<id>:timer".
func gameIDFromTimerKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, "game:")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, ":timer")
	if !ok || id == "" || strings.Contains(id, ":") {
		return "", false
	}
	return id, true
}
