package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freeeve/polite-betrayal/judge/internal/model"
)

const gameColumns = `id, name, status, winner, rules, phase_seconds, created_at, finished_at`

// GameRepo handles game database operations.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo creates a GameRepo.
func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*model.Game, error) {
	var g model.Game
	var winner sql.NullString
	var rules []byte
	if err := row.Scan(&g.ID, &g.Name, &g.Status, &winner, &rules, &g.PhaseSeconds, &g.CreatedAt, &g.FinishedAt); err != nil {
		return nil, err
	}
	g.Winner = winner.String
	g.Rules = json.RawMessage(rules)
	return &g, nil
}

// Create inserts a new active game.
func (r *GameRepo) Create(ctx context.Context, name string, rules json.RawMessage, phaseSeconds int) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		`INSERT INTO games (name, status, rules, phase_seconds)
		 VALUES ($1, 'active', $2, $3)
		 RETURNING `+gameColumns,
		name, []byte(rules), phaseSeconds,
	))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

// FindByID returns a game by ID, or nil when it does not exist.
func (r *GameRepo) FindByID(ctx context.Context, id string) (*model.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find game: %w", err)
	}
	return g, nil
}

// ListActive returns all games with status 'active', oldest first.
func (r *GameRepo) ListActive(ctx context.Context) ([]model.Game, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE status = 'active' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	defer rows.Close()

	var games []model.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// SetFinished marks a game as finished. An empty winner records a draw.
func (r *GameRepo) SetFinished(ctx context.Context, gameID, winner string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = 'finished', winner = $1, finished_at = now() WHERE id = $2`,
		nullStr(winner), gameID,
	)
	if err != nil {
		return fmt.Errorf("set finished: %w", err)
	}
	return nil
}
