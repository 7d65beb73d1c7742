package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/freeeve/polite-betrayal/judge/internal/model"
)

const phaseColumns = `id, game_id, year, season, phase_type, board_before, board_after, orders, results, deadline, resolved_at, created_at`

// PhaseRepo persists the phase history of each game.
type PhaseRepo struct {
	db *sql.DB
}

// NewPhaseRepo creates a PhaseRepo.
func NewPhaseRepo(db *sql.DB) *PhaseRepo {
	return &PhaseRepo{db: db}
}

func scanPhase(row rowScanner) (*model.Phase, error) {
	var p model.Phase
	var boardAfter sql.NullString
	var orders, results []byte
	if err := row.Scan(&p.ID, &p.GameID, &p.Year, &p.Season, &p.PhaseType, &p.BoardBefore, &boardAfter,
		&orders, &results, &p.Deadline, &p.ResolvedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.BoardAfter = boardAfter.String
	if orders != nil {
		p.Orders = json.RawMessage(orders)
	}
	if results != nil {
		p.Results = json.RawMessage(results)
	}
	return &p, nil
}

// CreatePhase inserts a new unresolved phase. A nil deadline means the
// phase is only resolved on request.
func (r *PhaseRepo) CreatePhase(ctx context.Context, gameID string, year int, season, phaseType, board string, deadline *time.Time) (*model.Phase, error) {
	p, err := scanPhase(r.db.QueryRowContext(ctx,
		`INSERT INTO phases (game_id, year, season, phase_type, board_before, deadline)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+phaseColumns,
		gameID, year, season, phaseType, board, deadline,
	))
	if err != nil {
		return nil, fmt.Errorf("create phase: %w", err)
	}
	return p, nil
}

// CurrentPhase returns the latest unresolved phase for a game.
func (r *PhaseRepo) CurrentPhase(ctx context.Context, gameID string) (*model.Phase, error) {
	p, err := scanPhase(r.db.QueryRowContext(ctx,
		`SELECT `+phaseColumns+`
		 FROM phases WHERE game_id = $1 AND resolved_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`, gameID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("current phase: %w", err)
	}
	return p, nil
}

// ListPhases returns all phases for a game in chronological order.
func (r *PhaseRepo) ListPhases(ctx context.Context, gameID string) ([]model.Phase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+phaseColumns+`
		 FROM phases WHERE game_id = $1
		 ORDER BY year,
		   CASE season WHEN 'spring' THEN 1 WHEN 'fall' THEN 2 ELSE 3 END,
		   CASE phase_type WHEN 'movement' THEN 1 WHEN 'retreat' THEN 2 WHEN 'build' THEN 3 ELSE 4 END`, gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list phases: %w", err)
	}
	defer rows.Close()

	var phases []model.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

// ResolvePhase marks a phase as resolved and stores the adjudicated board,
// the orders that were submitted and their results.
func (r *PhaseRepo) ResolvePhase(ctx context.Context, phaseID, boardAfter string, orders, results json.RawMessage) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE phases SET board_after = $1, orders = $2, results = $3, resolved_at = now()
		 WHERE id = $4 AND resolved_at IS NULL`,
		boardAfter, []byte(orders), []byte(results), phaseID,
	)
	if err != nil {
		return fmt.Errorf("resolve phase: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("resolve phase %s: already resolved or missing", phaseID)
	}
	return nil
}

// ListExpired returns the latest unresolved phase per active game whose
// deadline has passed. DISTINCT ON keeps orphaned older phases out.
func (r *PhaseRepo) ListExpired(ctx context.Context) ([]model.Phase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (p.game_id) p.id, p.game_id, p.year, p.season, p.phase_type, p.board_before,
		        p.board_after, p.orders, p.results, p.deadline, p.resolved_at, p.created_at
		 FROM phases p
		 JOIN games g ON g.id = p.game_id
		 WHERE p.resolved_at IS NULL AND p.deadline IS NOT NULL AND p.deadline < now() AND g.status = 'active'
		 ORDER BY p.game_id, p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list expired phases: %w", err)
	}
	defer rows.Close()

	var phases []model.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired phase: %w", err)
		}
		phases = append(phases, *p)
	}
	return phases, rows.Err()
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
