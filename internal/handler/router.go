package handler

import (
	"net/http"

	"github.com/freeeve/polite-betrayal/judge/internal/auth"
	"github.com/freeeve/polite-betrayal/judge/internal/middleware"
	"github.com/freeeve/polite-betrayal/judge/internal/service"
)

// NewRouter wires every route of the judge API behind the global
// middleware.
func NewRouter(judge *service.JudgeService, jwtMgr *auth.JWTManager, hub *Hub, corsOrigins string) http.Handler {
	adjudicateHandler := NewAdjudicateHandler(judge)
	gameHandler := NewGameHandler(judge, jwtMgr)
	orderHandler := NewOrderHandler(judge)
	phaseHandler := NewPhaseHandler(judge)
	wsHandler := NewWSHandler(hub)
	authMw := auth.Middleware(jwtMgr)

	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public
	mux.HandleFunc("POST /api/v1/adjudicate", adjudicateHandler.Adjudicate)
	mux.HandleFunc("POST /api/v1/games", gameHandler.CreateGame)
	mux.HandleFunc("GET /api/v1/games/{id}", gameHandler.GetGame)
	mux.HandleFunc("GET /api/v1/games/{id}/phases", phaseHandler.ListPhases)

	// Seat token required
	mux.Handle("POST /api/v1/games/{id}/orders", authMw(http.HandlerFunc(orderHandler.SubmitOrders)))
	mux.Handle("POST /api/v1/games/{id}/resolve", authMw(http.HandlerFunc(gameHandler.Resolve)))
	mux.Handle("GET /api/v1/games/{id}/ws", authMw(http.HandlerFunc(wsHandler.ServeWS)))

	return middleware.Chain(mux, middleware.Logger, middleware.Recover, middleware.CORS(corsOrigins), middleware.JSON)
}
