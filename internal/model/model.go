package model

import (
	"encoding/json"
	"time"
)

// Game status values.
const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

// Game is an adjudicated game. Its rule set is fixed at creation.
type Game struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Status       string          `json:"status"` // active, finished
	Winner       string          `json:"winner,omitempty"`
	Rules        json.RawMessage `json:"rules"`
	PhaseSeconds int             `json:"phase_seconds,omitempty"` // 0: resolve on request only
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// Phase is one adjudicated (or pending) phase of a game. Boards are DFEN
// strings; Orders maps each power to its submitted DSON text.
type Phase struct {
	ID          string          `json:"id"`
	GameID      string          `json:"game_id"`
	Year        int             `json:"year"`
	Season      string          `json:"season"`
	PhaseType   string          `json:"phase_type"`
	BoardBefore string          `json:"board_before"`
	BoardAfter  string          `json:"board_after,omitempty"`
	Orders      json.RawMessage `json:"orders,omitempty"`
	Results     json.RawMessage `json:"results,omitempty"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
