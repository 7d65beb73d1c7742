package handler

import (
	"net/http"

	"github.com/freeeve/polite-betrayal/judge/internal/service"
)

// OrderHandler handles order submission.
type OrderHandler struct {
	judge *service.JudgeService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(judge *service.JudgeService) *OrderHandler {
	return &OrderHandler{judge: judge}
}

// SubmitOrders handles POST /api/v1/games/{id}/orders. The orders are
// recorded for the power named by the seat token.
func (h *OrderHandler) SubmitOrders(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	claims, ok := seatFor(w, r, gameID)
	if !ok {
		return
	}

	var req service.SubmitOrdersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.judge.SubmitOrders(r.Context(), gameID, claims.Power, req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"power":  claims.Power,
		"orders": len(req.Orders),
	})
}
