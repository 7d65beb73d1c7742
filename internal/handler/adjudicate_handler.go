package handler

import (
	"net/http"

	"github.com/freeeve/polite-betrayal/judge/internal/service"
)

// AdjudicateHandler serves stateless adjudication.
type AdjudicateHandler struct {
	judge *service.JudgeService
}

// NewAdjudicateHandler creates an AdjudicateHandler.
func NewAdjudicateHandler(judge *service.JudgeService) *AdjudicateHandler {
	return &AdjudicateHandler{judge: judge}
}

// Adjudicate handles POST /api/v1/adjudicate. It resolves the posted board
// and orders and returns the results with the following board.
func (h *AdjudicateHandler) Adjudicate(w http.ResponseWriter, r *http.Request) {
	var req service.AdjudicateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.judge.Adjudicate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
