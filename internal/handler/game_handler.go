package handler

import (
	"net/http"

	"github.com/freeeve/polite-betrayal/judge/internal/auth"
	"github.com/freeeve/polite-betrayal/judge/internal/logger"
	"github.com/freeeve/polite-betrayal/judge/internal/model"
	"github.com/freeeve/polite-betrayal/judge/internal/service"
	"github.com/freeeve/polite-betrayal/judge/pkg/diplomacy"
)

// GameHandler handles game lifecycle endpoints.
type GameHandler struct {
	judge  *service.JudgeService
	jwtMgr *auth.JWTManager
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(judge *service.JudgeService, jwtMgr *auth.JWTManager) *GameHandler {
	return &GameHandler{judge: judge, jwtMgr: jwtMgr}
}

// CreateGameResponse is the created game together with one seat token per
// power. The tokens are only ever returned here.
type CreateGameResponse struct {
	Game   *model.Game       `json:"game"`
	Tokens map[string]string `json:"tokens"`
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req service.CreateGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.judge.CreateGame(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	powers := make([]string, 0, 7)
	for _, p := range diplomacy.AllPowers() {
		powers = append(powers, string(p))
	}
	tokens, err := h.jwtMgr.GenerateSeatTokens(game.ID, powers)
	if err != nil {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Str("gameId", game.ID).Msg("Failed to sign seat tokens")
		writeError(w, http.StatusInternalServerError, "failed to issue tokens")
		return
	}
	writeJSON(w, http.StatusCreated, CreateGameResponse{Game: game, Tokens: tokens})
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	view, err := h.judge.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Resolve handles POST /api/v1/games/{id}/resolve. Any seat of the game may
// force resolution of the open phase before its deadline.
func (h *GameHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	claims, ok := seatFor(w, r, gameID)
	if !ok {
		return
	}

	res, err := h.judge.Resolve(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	l := logger.ForRequest(r.Context())
	l.Info().Str("gameId", gameID).Str("by", claims.Power).Msg("Phase resolved on request")
	writeJSON(w, http.StatusOK, res)
}
