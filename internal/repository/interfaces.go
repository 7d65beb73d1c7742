package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/polite-betrayal/judge/internal/model"
)

// GameRepository defines game data operations. Lookups of unknown IDs
// return (nil, nil).
type GameRepository interface {
	Create(ctx context.Context, name string, rules json.RawMessage, phaseSeconds int) (*model.Game, error)
	FindByID(ctx context.Context, id string) (*model.Game, error)
	ListActive(ctx context.Context) ([]model.Game, error)
	SetFinished(ctx context.Context, gameID, winner string) error
}

// PhaseRepository defines phase history operations.
type PhaseRepository interface {
	CreatePhase(ctx context.Context, gameID string, year int, season, phaseType, board string, deadline *time.Time) (*model.Phase, error)
	CurrentPhase(ctx context.Context, gameID string) (*model.Phase, error)
	ListPhases(ctx context.Context, gameID string) ([]model.Phase, error)
	ResolvePhase(ctx context.Context, phaseID, boardAfter string, orders, results json.RawMessage) error
	ListExpired(ctx context.Context) ([]model.Phase, error)
}

// GameCache defines live game state operations (Redis).
type GameCache interface {
	SetBoard(ctx context.Context, gameID, dfen string) error
	// GetBoard returns "" when no board is cached.
	GetBoard(ctx context.Context, gameID string) (string, error)
	SetOrders(ctx context.Context, gameID, power, dson string) error
	GetAllOrders(ctx context.Context, gameID string) (map[string]string, error)
	// AcquireLock returns a token identifying the holder, or "" when the
	// game is already locked.
	AcquireLock(ctx context.Context, gameID string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, gameID, token string) error
	SetTimer(ctx context.Context, gameID string, deadline time.Time) error
	ClearPhaseData(ctx context.Context, gameID string) error
	DeleteGameData(ctx context.Context, gameID string) error
}
