package handler

import (
	"net/http"

	"github.com/freeeve/polite-betrayal/judge/internal/service"
)

// PhaseHandler serves the phase history of a game.
type PhaseHandler struct {
	judge *service.JudgeService
}

// NewPhaseHandler creates a PhaseHandler.
func NewPhaseHandler(judge *service.JudgeService) *PhaseHandler {
	return &PhaseHandler{judge: judge}
}

// ListPhases handles GET /api/v1/games/{id}/phases
func (h *PhaseHandler) ListPhases(w http.ResponseWriter, r *http.Request) {
	phases, err := h.judge.Phases(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if phases == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, phases)
}
