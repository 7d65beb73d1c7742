package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/polite-betrayal/judge/internal/logger"
	"github.com/freeeve/polite-betrayal/judge/internal/model"
	"github.com/freeeve/polite-betrayal/judge/internal/repository"
	"github.com/freeeve/polite-betrayal/judge/pkg/diplomacy"
)

var (
	ErrNotFound     = errors.New("game not found")
	ErrWrongPhase   = errors.New("orders are for a different phase")
	ErrGameLocked   = errors.New("game is being resolved")
	ErrGameFinished = errors.New("game is finished")
	ErrInvalidInput = errors.New("invalid input")
)

const defaultLockTTL = 30 * time.Second

// Options configures a JudgeService.
type Options struct {
	Map     *diplomacy.DiplomacyMap // nil selects the standard map
	Rules   diplomacy.Rules         // applied when a request names no preset
	LockTTL time.Duration           // bound on a single resolution
}

// JudgeService adjudicates submitted boards and runs games phase by phase:
// orders are collected in the cache, resolution locks the game, records
// the phase in the history and opens the next one.
type JudgeService struct {
	gameRepo    repository.GameRepository
	phaseRepo   repository.PhaseRepository
	cache       repository.GameCache
	broadcaster Broadcaster
	m           *diplomacy.DiplomacyMap
	defaults    diplomacy.Rules
	lockTTL     time.Duration
}

// NewJudgeService creates a JudgeService.
func NewJudgeService(gameRepo repository.GameRepository, phaseRepo repository.PhaseRepository, cache repository.GameCache, broadcaster Broadcaster, opts Options) *JudgeService {
	if opts.Map == nil {
		opts.Map = diplomacy.StandardMap()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultLockTTL
	}
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &JudgeService{
		gameRepo:    gameRepo,
		phaseRepo:   phaseRepo,
		cache:       cache,
		broadcaster: broadcaster,
		m:           opts.Map,
		defaults:    opts.Rules,
		lockTTL:     opts.LockTTL,
	}
}

// AdjudicateRequest is a one-off adjudication. An empty Board selects the
// initial position. Rules, when present, overrides individual options of
// the preset.
type AdjudicateRequest struct {
	Board  string              `json:"board,omitempty"`
	Orders map[string][]string `json:"orders"`
	Preset string              `json:"preset,omitempty"`
	Rules  json.RawMessage     `json:"rules,omitempty"`
}

// AdjudicateResponse carries the results and the board of the following
// phase.
type AdjudicateResponse struct {
	Result *diplomacy.PhaseResult `json:"result"`
	Board  string                 `json:"board"`
}

// Adjudicate resolves one phase without touching any game.
func (s *JudgeService) Adjudicate(ctx context.Context, req AdjudicateRequest) (*AdjudicateResponse, error) {
	gs, err := s.decodeBoard(req.Board)
	if err != nil {
		return nil, err
	}
	rules, err := s.resolveRules(req.Preset, req.Rules)
	if err != nil {
		return nil, err
	}
	orders, err := parseOrders(req.Orders)
	if err != nil {
		return nil, err
	}

	adj := diplomacy.NewAdjudicator(s.m, rules, logger.ForRequest(ctx))
	res, err := adj.Adjudicate(gs, orders)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	diplomacy.AdvanceState(gs, s.m)
	return &AdjudicateResponse{Result: res, Board: diplomacy.EncodeDFEN(gs)}, nil
}

// CreateGameRequest starts a game. PhaseSeconds of zero means phases are
// only resolved on request.
type CreateGameRequest struct {
	Name         string          `json:"name"`
	Board        string          `json:"board,omitempty"`
	Preset       string          `json:"preset,omitempty"`
	Rules        json.RawMessage `json:"rules,omitempty"`
	PhaseSeconds int             `json:"phase_seconds,omitempty"`
}

// CreateGame stores a new game and opens its first phase.
func (s *JudgeService) CreateGame(ctx context.Context, req CreateGameRequest) (*model.Game, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.PhaseSeconds < 0 {
		return nil, fmt.Errorf("%w: phase_seconds must not be negative", ErrInvalidInput)
	}
	gs, err := s.decodeBoard(req.Board)
	if err != nil {
		return nil, err
	}
	rules, err := s.resolveRules(req.Preset, req.Rules)
	if err != nil {
		return nil, err
	}
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("marshal rules: %w", err)
	}

	game, err := s.gameRepo.Create(ctx, name, rulesJSON, req.PhaseSeconds)
	if err != nil {
		return nil, err
	}
	board := diplomacy.EncodeDFEN(gs)
	if _, err := s.openPhase(ctx, game, gs, board); err != nil {
		return nil, err
	}

	log.Info().Str("gameId", game.ID).Str("name", name).Str("phase", phaseLabel(gs)).
		Int("phaseSeconds", req.PhaseSeconds).Msg("Game created")
	return game, nil
}

// GameView is a game with its live board.
type GameView struct {
	Game      *model.Game  `json:"game"`
	Board     string       `json:"board"`
	Phase     *model.Phase `json:"phase,omitempty"`
	Label     string       `json:"phase_label,omitempty"`
	Submitted []string     `json:"submitted,omitempty"`
}

// GetGame returns the game with its current board and the powers that have
// submitted orders for the open phase.
func (s *JudgeService) GetGame(ctx context.Context, gameID string) (*GameView, error) {
	game, err := s.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	view := &GameView{Game: game}

	if game.Status == model.StatusFinished {
		phases, err := s.phaseRepo.ListPhases(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if n := len(phases); n > 0 {
			view.Board = phases[n-1].BoardAfter
		}
		return view, nil
	}

	phase, err := s.phaseRepo.CurrentPhase(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, fmt.Errorf("game %s has no open phase", gameID)
	}
	view.Phase = phase
	view.Label = label(phase.Year, phase.Season, phase.PhaseType)
	if view.Board, err = s.currentBoard(ctx, phase); err != nil {
		return nil, err
	}

	submitted, err := s.cache.GetAllOrders(ctx, gameID)
	if err != nil {
		return nil, err
	}
	for power := range submitted {
		view.Submitted = append(view.Submitted, power)
	}
	sort.Strings(view.Submitted)
	return view, nil
}

// SubmitOrdersRequest carries one power's orders. Phase, when set, must
// name the open phase ("1901sm").
type SubmitOrdersRequest struct {
	Phase  string   `json:"phase,omitempty"`
	Orders []string `json:"orders"`
}

// SubmitOrders records a power's orders for the open phase, replacing any
// earlier submission. Orders are only checked for syntax here; legality is
// decided at resolution.
func (s *JudgeService) SubmitOrders(ctx context.Context, gameID, power string, req SubmitOrdersRequest) error {
	p, ok := diplomacy.ParsePower(power)
	if !ok {
		return fmt.Errorf("%w: unknown power %q", ErrInvalidInput, power)
	}
	game, err := s.findGame(ctx, gameID)
	if err != nil {
		return err
	}
	if game.Status != model.StatusActive {
		return ErrGameFinished
	}
	phase, err := s.phaseRepo.CurrentPhase(ctx, gameID)
	if err != nil {
		return err
	}
	if phase == nil {
		return fmt.Errorf("game %s has no open phase", gameID)
	}
	current := label(phase.Year, phase.Season, phase.PhaseType)
	if req.Phase != "" && !strings.EqualFold(req.Phase, current) {
		return fmt.Errorf("%w: submitted for %s, open phase is %s", ErrWrongPhase, req.Phase, current)
	}

	parsed, err := parsePowerOrders(req.Orders)
	if err != nil {
		return err
	}
	if err := s.cache.SetOrders(ctx, gameID, string(p), diplomacy.FormatDSON(parsed)); err != nil {
		return fmt.Errorf("store orders: %w", err)
	}

	l := logger.ForRequest(ctx)
	l.Info().Str("gameId", gameID).Str("power", string(p)).
		Str("phase", current).Int("orders", len(parsed)).Msg("Orders submitted")
	s.broadcaster.BroadcastGameEvent(gameID, EventOrdersSubmitted, map[string]any{
		"power": string(p),
		"phase": current,
	})
	return nil
}

// Resolution is the outcome of resolving a game's open phase.
type Resolution struct {
	GameID   string                 `json:"game_id"`
	PhaseID  string                 `json:"phase_id"`
	Result   *diplomacy.PhaseResult `json:"result"`
	Board    string                 `json:"board"`
	Next     *model.Phase           `json:"next,omitempty"`
	Finished bool                   `json:"finished,omitempty"`
	Winner   string                 `json:"winner,omitempty"`
}

// Resolve adjudicates the open phase of a game now.
func (s *JudgeService) Resolve(ctx context.Context, gameID string) (*Resolution, error) {
	return s.resolve(ctx, gameID, false)
}

// ResolveExpired adjudicates the open phase only if its deadline has
// passed. It returns (nil, nil) when nothing was due.
func (s *JudgeService) ResolveExpired(ctx context.Context, gameID string) (*Resolution, error) {
	return s.resolve(ctx, gameID, true)
}

func (s *JudgeService) resolve(ctx context.Context, gameID string, onlyIfDue bool) (*Resolution, error) {
	token, err := s.cache.AcquireLock(ctx, gameID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock game: %w", err)
	}
	if token == "" {
		return nil, ErrGameLocked
	}
	defer func() {
		if err := s.cache.ReleaseLock(context.WithoutCancel(ctx), gameID, token); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Msg("Failed to release resolution lock")
		}
	}()

	game, err := s.findGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status != model.StatusActive {
		return nil, ErrGameFinished
	}
	phase, err := s.phaseRepo.CurrentPhase(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if phase == nil {
		return nil, fmt.Errorf("game %s has no open phase", gameID)
	}
	if onlyIfDue && (phase.Deadline == nil || time.Now().Before(*phase.Deadline)) {
		log.Debug().Str("gameId", gameID).Msg("Phase deadline not yet reached, skipping")
		return nil, nil
	}

	board, err := s.currentBoard(ctx, phase)
	if err != nil {
		return nil, err
	}
	gs, err := diplomacy.DecodeDFEN(board)
	if err != nil {
		return nil, fmt.Errorf("decode board of game %s: %w", gameID, err)
	}
	rules, err := gameRules(game)
	if err != nil {
		return nil, err
	}
	submitted, err := s.cache.GetAllOrders(ctx, gameID)
	if err != nil {
		return nil, err
	}
	orders := make(map[diplomacy.Power][]diplomacy.DSONOrder, len(submitted))
	for name, text := range submitted {
		p, ok := diplomacy.ParsePower(name)
		if !ok {
			return nil, fmt.Errorf("cached orders for unknown power %q", name)
		}
		parsed, err := diplomacy.ParseDSON(text)
		if err != nil {
			return nil, fmt.Errorf("cached orders of %s: %w", name, err)
		}
		orders[p] = parsed
	}

	current := phaseLabel(gs)
	l := log.With().Str("gameId", gameID).Str("phase", current).Logger()
	l.Info().Int("powers", len(orders)).Bool("deadline", onlyIfDue).Msg("Resolving phase")

	res, err := diplomacy.NewAdjudicator(s.m, rules, l).Adjudicate(gs, orders)
	if err != nil {
		return nil, fmt.Errorf("adjudicate %s: %w", current, err)
	}
	diplomacy.AdvanceState(gs, s.m)
	next := diplomacy.EncodeDFEN(gs)

	ordersJSON, err := json.Marshal(submitted)
	if err != nil {
		return nil, fmt.Errorf("marshal orders: %w", err)
	}
	resultsJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	if err := s.phaseRepo.ResolvePhase(ctx, phase.ID, next, ordersJSON, resultsJSON); err != nil {
		return nil, err
	}

	out := &Resolution{GameID: gameID, PhaseID: phase.ID, Result: res, Board: next}
	event := map[string]any{
		"phase_id": phase.ID,
		"phase":    current,
		"results":  res.Results,
		"board":    next,
	}

	solo, winner := diplomacy.IsGameOver(gs)
	if solo || diplomacy.IsYearLimitReached(gs) {
		out.Finished = true
		out.Winner = string(winner)
		if err := s.gameRepo.SetFinished(ctx, gameID, out.Winner); err != nil {
			return nil, err
		}
		if err := s.cache.DeleteGameData(ctx, gameID); err != nil {
			l.Warn().Err(err).Msg("Failed to delete cached game data")
		}
		l.Info().Str("winner", out.Winner).Msg("Game finished")
		s.broadcaster.BroadcastGameEvent(gameID, EventPhaseResolved, event)
		s.broadcaster.BroadcastGameEvent(gameID, EventGameEnded, map[string]any{"winner": out.Winner})
		return out, nil
	}

	nextPhase, err := s.openPhase(ctx, game, gs, next)
	if err != nil {
		return nil, err
	}
	out.Next = nextPhase
	event["next_phase"] = phaseLabel(gs)
	if nextPhase.Deadline != nil {
		event["deadline"] = nextPhase.Deadline.Format(time.RFC3339)
	}

	l.Info().Str("next", phaseLabel(gs)).Int("results", len(res.Results)).
		Int("passes", res.Passes).Msg("Phase resolved")
	s.broadcaster.BroadcastGameEvent(gameID, EventPhaseResolved, event)
	return out, nil
}

// Phases returns the phase history of a game, oldest first.
func (s *JudgeService) Phases(ctx context.Context, gameID string) ([]model.Phase, error) {
	if _, err := s.findGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.phaseRepo.ListPhases(ctx, gameID)
}

// RecoverActiveGames rehydrates the cache after a restart: it restores
// boards and deadline timers, and reopens a phase for any game whose last
// resolution stopped before the next phase was created.
func (s *JudgeService) RecoverActiveGames(ctx context.Context) error {
	games, err := s.gameRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active games: %w", err)
	}
	recovered := 0
	for i := range games {
		game := &games[i]
		phase, err := s.phaseRepo.CurrentPhase(ctx, game.ID)
		if err != nil {
			return err
		}
		if phase == nil {
			if phase, err = s.reopen(ctx, game); err != nil {
				log.Error().Err(err).Str("gameId", game.ID).Msg("Failed to reopen phase")
				continue
			}
		}
		board, err := s.cache.GetBoard(ctx, game.ID)
		if err != nil {
			return err
		}
		if board == "" {
			if err := s.cache.SetBoard(ctx, game.ID, phase.BoardBefore); err != nil {
				return err
			}
		}
		if phase.Deadline != nil {
			if err := s.cache.SetTimer(ctx, game.ID, *phase.Deadline); err != nil {
				return err
			}
		}
		recovered++
	}
	log.Info().Int("games", recovered).Msg("Recovered active games")
	return nil
}

func (s *JudgeService) reopen(ctx context.Context, game *model.Game) (*model.Phase, error) {
	phases, err := s.phaseRepo.ListPhases(ctx, game.ID)
	if err != nil {
		return nil, err
	}
	if len(phases) == 0 {
		return nil, fmt.Errorf("game %s has no phases", game.ID)
	}
	board := phases[len(phases)-1].BoardAfter
	gs, err := diplomacy.DecodeDFEN(board)
	if err != nil {
		return nil, fmt.Errorf("decode last board: %w", err)
	}
	return s.openPhase(ctx, game, gs, board)
}

// openPhase records gs as the game's open phase and primes the cache.
func (s *JudgeService) openPhase(ctx context.Context, game *model.Game, gs *diplomacy.GameState, board string) (*model.Phase, error) {
	var deadline *time.Time
	if game.PhaseSeconds > 0 {
		d := time.Now().Add(time.Duration(game.PhaseSeconds) * time.Second)
		deadline = &d
	}
	phase, err := s.phaseRepo.CreatePhase(ctx, game.ID, gs.Year, string(gs.Season), string(gs.Phase), board, deadline)
	if err != nil {
		return nil, err
	}
	if err := s.cache.ClearPhaseData(ctx, game.ID); err != nil {
		return nil, fmt.Errorf("clear phase data: %w", err)
	}
	if err := s.cache.SetBoard(ctx, game.ID, board); err != nil {
		return nil, fmt.Errorf("cache board: %w", err)
	}
	if deadline != nil {
		if err := s.cache.SetTimer(ctx, game.ID, *deadline); err != nil {
			return nil, fmt.Errorf("set timer: %w", err)
		}
	}
	return phase, nil
}

func (s *JudgeService) findGame(ctx context.Context, gameID string) (*model.Game, error) {
	game, err := s.gameRepo.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrNotFound
	}
	return game, nil
}

// currentBoard prefers the cached board and falls back to the phase record.
func (s *JudgeService) currentBoard(ctx context.Context, phase *model.Phase) (string, error) {
	board, err := s.cache.GetBoard(ctx, phase.GameID)
	if err != nil {
		return "", err
	}
	if board == "" {
		board = phase.BoardBefore
	}
	return board, nil
}

func (s *JudgeService) decodeBoard(board string) (*diplomacy.GameState, error) {
	if strings.TrimSpace(board) == "" {
		return diplomacy.NewInitialState(), nil
	}
	gs, err := diplomacy.DecodeDFEN(strings.TrimSpace(board))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return gs, nil
}

// resolveRules starts from the named preset (or the service default) and
// overlays any options present in raw.
func (s *JudgeService) resolveRules(preset string, raw json.RawMessage) (diplomacy.Rules, error) {
	rules := s.defaults
	if preset != "" {
		var err error
		if rules, err = diplomacy.RulesPreset(strings.ToLower(preset)); err != nil {
			return diplomacy.Rules{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rules); err != nil {
			return diplomacy.Rules{}, fmt.Errorf("%w: rules: %v", ErrInvalidInput, err)
		}
	}
	if err := rules.Validate(); err != nil {
		return diplomacy.Rules{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return rules, nil
}

func gameRules(game *model.Game) (diplomacy.Rules, error) {
	rules := diplomacy.DefaultRules()
	if len(game.Rules) > 0 {
		if err := json.Unmarshal(game.Rules, &rules); err != nil {
			return diplomacy.Rules{}, fmt.Errorf("rules of game %s: %w", game.ID, err)
		}
	}
	return rules, nil
}

func parseOrders(in map[string][]string) (map[diplomacy.Power][]diplomacy.DSONOrder, error) {
	out := make(map[diplomacy.Power][]diplomacy.DSONOrder, len(in))
	for name, texts := range in {
		p, ok := diplomacy.ParsePower(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown power %q", ErrInvalidInput, name)
		}
		parsed, err := parsePowerOrders(texts)
		if err != nil {
			return nil, err
		}
		out[p] = append(out[p], parsed...)
	}
	return out, nil
}

func parsePowerOrders(texts []string) ([]diplomacy.DSONOrder, error) {
	var out []diplomacy.DSONOrder
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		parsed, err := diplomacy.ParseDSON(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		out = append(out, parsed...)
	}
	return out, nil
}

// label renders a phase the way DFEN does, e.g. "1901sm".
func label(year int, season, phase string) string {
	if season == "" || phase == "" {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%d%c%c", year, season[0], phase[0])
}

func phaseLabel(gs *diplomacy.GameState) string {
	return label(gs.Year, string(gs.Season), string(gs.Phase))
}
