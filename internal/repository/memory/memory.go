// Package memory implements the repository interfaces in process memory.
// It backs the server when MEMORY_BACKEND is set and the service and
// handler tests; nothing survives a restart.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/freeeve/polite-betrayal/judge/internal/model"
)

// GameRepo is an in-memory repository.GameRepository.
type GameRepo struct {
	mu    sync.Mutex
	seq   int
	games map[string]*model.Game
}

// NewGameRepo creates an empty GameRepo.
func NewGameRepo() *GameRepo {
	return &GameRepo{games: make(map[string]*model.Game)}
}

func (r *GameRepo) Create(_ context.Context, name string, rules json.RawMessage, phaseSeconds int) (*model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	g := &model.Game{
		ID:           fmt.Sprintf("game-%d", r.seq),
		Name:         name,
		Status:       model.StatusActive,
		Rules:        append(json.RawMessage(nil), rules...),
		PhaseSeconds: phaseSeconds,
		CreatedAt:    time.Now(),
	}
	r.games[g.ID] = g
	cp := *g
	return &cp, nil
}

func (r *GameRepo) FindByID(_ context.Context, id string) (*model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *GameRepo) ListActive(_ context.Context) ([]model.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Game
	for _, g := range r.games {
		if g.Status == model.StatusActive {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *GameRepo) SetFinished(_ context.Context, gameID, winner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[gameID]
	if !ok {
		return fmt.Errorf("game %s not found", gameID)
	}
	now := time.Now()
	g.Status = model.StatusFinished
	g.Winner = winner
	g.FinishedAt = &now
	return nil
}

// PhaseRepo is an in-memory repository.PhaseRepository. Phases are kept
// in creation order, which is chronological.
type PhaseRepo struct {
	mu     sync.Mutex
	seq    int
	phases []*model.Phase
	games  *GameRepo
}

// NewPhaseRepo creates an empty PhaseRepo. games is consulted by
// ListExpired to skip finished games and may be nil.
func NewPhaseRepo(games *GameRepo) *PhaseRepo {
	return &PhaseRepo{games: games}
}

func (r *PhaseRepo) CreatePhase(_ context.Context, gameID string, year int, season, phaseType, board string, deadline *time.Time) (*model.Phase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p := &model.Phase{
		ID:          fmt.Sprintf("phase-%d", r.seq),
		GameID:      gameID,
		Year:        year,
		Season:      season,
		PhaseType:   phaseType,
		BoardBefore: board,
		Deadline:    deadline,
		CreatedAt:   time.Now(),
	}
	r.phases = append(r.phases, p)
	cp := *p
	return &cp, nil
}

func (r *PhaseRepo) CurrentPhase(_ context.Context, gameID string) (*model.Phase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.phases) - 1; i >= 0; i-- {
		p := r.phases[i]
		if p.GameID == gameID && p.ResolvedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *PhaseRepo) ListPhases(_ context.Context, gameID string) ([]model.Phase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Phase
	for _, p := range r.phases {
		if p.GameID == gameID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *PhaseRepo) ResolvePhase(_ context.Context, phaseID, boardAfter string, orders, results json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.phases {
		if p.ID != phaseID {
			continue
		}
		if p.ResolvedAt != nil {
			return fmt.Errorf("resolve phase %s: already resolved", phaseID)
		}
		now := time.Now()
		p.BoardAfter = boardAfter
		p.Orders = orders
		p.Results = results
		p.ResolvedAt = &now
		return nil
	}
	return fmt.Errorf("resolve phase %s: not found", phaseID)
}

func (r *PhaseRepo) ListExpired(ctx context.Context) ([]model.Phase, error) {
	r.mu.Lock()
	latest := make(map[string]*model.Phase)
	for _, p := range r.phases {
		if p.ResolvedAt == nil {
			latest[p.GameID] = p
		}
	}
	var out []model.Phase
	now := time.Now()
	for _, p := range latest {
		if p.Deadline != nil && p.Deadline.Before(now) {
			out = append(out, *p)
		}
	}
	r.mu.Unlock()

	if r.games == nil {
		return out, nil
	}
	active := out[:0]
	for _, p := range out {
		if g, _ := r.games.FindByID(ctx, p.GameID); g != nil && g.Status == model.StatusActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// Cache is an in-memory repository.GameCache. Timers are recorded but
// never fire; deadlines are picked up by the expired-phase poller.
type Cache struct {
	mu     sync.Mutex
	seq    int
	boards map[string]string
	orders map[string]map[string]string
	locks  map[string]lock
	timers map[string]time.Time
}

type lock struct {
	token   string
	expires time.Time
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		boards: make(map[string]string),
		orders: make(map[string]map[string]string),
		locks:  make(map[string]lock),
		timers: make(map[string]time.Time),
	}
}

func (c *Cache) SetBoard(_ context.Context, gameID, dfen string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[gameID] = dfen
	return nil
}

func (c *Cache) GetBoard(_ context.Context, gameID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boards[gameID], nil
}

func (c *Cache) SetOrders(_ context.Context, gameID, power, dson string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orders[gameID] == nil {
		c.orders[gameID] = make(map[string]string)
	}
	c.orders[gameID][power] = dson
	return nil
}

func (c *Cache) GetAllOrders(_ context.Context, gameID string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.orders[gameID]))
	for p, o := range c.orders[gameID] {
		out[p] = o
	}
	return out, nil
}

func (c *Cache) AcquireLock(_ context.Context, gameID string, ttl time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[gameID]; ok && time.Now().Before(l.expires) {
		return "", nil
	}
	c.seq++
	token := fmt.Sprintf("lock-%d", c.seq)
	c.locks[gameID] = lock{token: token, expires: time.Now().Add(ttl)}
	return token, nil
}

func (c *Cache) ReleaseLock(_ context.Context, gameID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[gameID]; ok && l.token == token {
		delete(c.locks, gameID)
	}
	return nil
}

func (c *Cache) SetTimer(_ context.Context, gameID string, deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers[gameID] = deadline
	return nil
}

// Timer reports the deadline recorded for a game.
func (c *Cache) Timer(gameID string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.timers[gameID]
	return t, ok
}

func (c *Cache) ClearPhaseData(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.orders, gameID)
	delete(c.timers, gameID)
	return nil
}

func (c *Cache) DeleteGameData(_ context.Context, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.boards, gameID)
	delete(c.orders, gameID)
	delete(c.timers, gameID)
	return nil
}
