package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/polite-betrayal/judge/internal/auth"
	"github.com/freeeve/polite-betrayal/judge/internal/repository/memory"
	"github.com/freeeve/polite-betrayal/judge/internal/service"
	"github.com/freeeve/polite-betrayal/judge/pkg/diplomacy"
)

type testEnv struct {
	router http.Handler
	hub    *Hub
	jwtMgr *auth.JWTManager
}

func newTestEnv() *testEnv {
	games := memory.NewGameRepo()
	hub := NewHub()
	judge := service.NewJudgeService(games, memory.NewPhaseRepo(games), memory.NewCache(), hub,
		service.Options{Rules: diplomacy.DefaultRules()})
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	return &testEnv{router: NewRouter(judge, jwtMgr, hub, "*"), hub: hub, jwtMgr: jwtMgr}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createGame(t *testing.T, body string) CreateGameResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/games", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CreateGameResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

// adjudicateBody and resolutionBody pick the fields the tests check;
// results are reported as codes, which do not decode back into the engine
// types.
type adjudicateBody struct {
	Result struct {
		Results []struct {
			Result string `json:"result"`
		} `json:"results"`
	} `json:"result"`
	Board string `json:"board"`
}

type resolutionBody struct {
	Board    string          `json:"board"`
	Next     json.RawMessage `json:"next"`
	Finished bool            `json:"finished"`
}

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAdjudicateEndpoint(t *testing.T) {
	env := newTestEnv()
	body := `{"orders":{"france":["A par - bur"],"germany":["A mun - bur"],"italy":["A ven - tyr"]}}`
	rec := env.do(t, http.MethodPost, "/api/v1/adjudicate", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[adjudicateBody](t, rec)

	if !strings.HasPrefix(resp.Board, "1901fm/") {
		t.Errorf("expected a fall 1901 board, got %s", resp.Board)
	}
	if !strings.Contains(resp.Board, "Iatyr") {
		t.Errorf("expected the Italian army in tyr, got %s", resp.Board)
	}
	bounces := 0
	for _, r := range resp.Result.Results {
		if r.Result == "BNC" {
			bounces++
		}
	}
	if bounces != 2 {
		t.Errorf("expected 2 bounces, got %d", bounces)
	}
}

func TestAdjudicateEndpointErrors(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name string
		body string
	}{
		{"not json", "orders please"},
		{"bad board", `{"board":"1901xm/-/-/-"}`},
		{"bad power", `{"orders":{"prussia":["A ber H"]}}`},
		{"bad preset", `{"preset":"anything-goes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/adjudicate", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateGameIssuesSeatTokens(t *testing.T) {
	env := newTestEnv()
	resp := env.createGame(t, `{"name":"Tokens","preset":"datc"}`)

	if len(resp.Tokens) != 7 {
		t.Fatalf("expected 7 seat tokens, got %d", len(resp.Tokens))
	}
	claims, err := env.jwtMgr.ValidateToken(resp.Tokens["russia"])
	if err != nil {
		t.Fatalf("validate russia token: %v", err)
	}
	if claims.GameID != resp.Game.ID || claims.Power != "russia" {
		t.Errorf("unexpected claims %+v", claims)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/games", "", `{"name":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a nameless game, got %d", rec.Code)
	}
}

func TestGameLifecycle(t *testing.T) {
	env := newTestEnv()
	created := env.createGame(t, `{"name":"Lifecycle"}`)
	gameID := created.Game.ID
	base := "/api/v1/games/" + gameID

	rec := env.do(t, http.MethodPost, base+"/orders", created.Tokens["france"],
		`{"phase":"1901sm","orders":["A par - bur","A mar - spa"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, base, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	view := decodeBody[service.GameView](t, rec)
	if view.Label != "1901sm" {
		t.Errorf("expected 1901sm, got %s", view.Label)
	}
	if len(view.Submitted) != 1 || view.Submitted[0] != "france" {
		t.Errorf("expected france to have submitted, got %v", view.Submitted)
	}

	rec = env.do(t, http.MethodPost, base+"/resolve", created.Tokens["england"], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[resolutionBody](t, rec)
	if res.Finished || len(res.Next) == 0 {
		t.Fatalf("expected the game to continue, got %+v", res)
	}
	if !strings.Contains(res.Board, "Fabur") || !strings.Contains(res.Board, "Faspa") {
		t.Errorf("expected French armies in bur and spa, got %s", res.Board)
	}

	rec = env.do(t, http.MethodGet, base+"/phases", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("phases: expected 200, got %d", rec.Code)
	}
	phases := decodeBody[[]json.RawMessage](t, rec)
	if len(phases) != 2 {
		t.Errorf("expected 2 phases, got %d", len(phases))
	}

	// Orders for the phase that was just resolved are stale.
	rec = env.do(t, http.MethodPost, base+"/orders", created.Tokens["france"],
		`{"phase":"1901sm","orders":["A bur - mun"]}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for a stale phase, got %d", rec.Code)
	}
}

func TestSeatTokenChecks(t *testing.T) {
	env := newTestEnv()
	g1 := env.createGame(t, `{"name":"One"}`)
	g2 := env.createGame(t, `{"name":"Two"}`)
	path := "/api/v1/games/" + g1.Game.ID + "/orders"
	body := `{"orders":["A par H"]}`

	if rec := env.do(t, http.MethodPost, path, "", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, path, "garbage", body); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, path, g2.Tokens["france"], body); rec.Code != http.StatusForbidden {
		t.Errorf("other game's token: expected 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, path, g1.Tokens["france"], "{"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: expected 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, path, g1.Tokens["france"], `{"orders":["A par"]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad order: expected 400, got %d", rec.Code)
	}
}

func TestUnknownGame(t *testing.T) {
	env := newTestEnv()
	if rec := env.do(t, http.MethodGet, "/api/v1/games/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get: expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/games/nope/phases", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("phases: expected 404, got %d", rec.Code)
	}
	token, _ := env.jwtMgr.GenerateToken("nope", "france")
	if rec := env.do(t, http.MethodPost, "/api/v1/games/nope/resolve", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("resolve: expected 404, got %d", rec.Code)
	}
}

func TestWebSocketReceivesGameEvents(t *testing.T) {
	env := newTestEnv()
	created := env.createGame(t, `{"name":"Live"}`)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/games/" + created.Game.ID +
		"/ws?token=" + created.Tokens["italy"]
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() WSEvent {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("decode event %q: %v", msg, err)
		}
		return event
	}

	if event := read(); event.Type != "connected" {
		t.Fatalf("expected connected, got %s", event.Type)
	}

	rec := env.do(t, http.MethodPost, "/api/v1/games/"+created.Game.ID+"/orders", created.Tokens["austria"],
		`{"orders":["A vie - gal"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", rec.Code)
	}

	event := read()
	if event.Type != service.EventOrdersSubmitted || event.GameID != created.Game.ID {
		t.Errorf("expected orders_submitted for the game, got %+v", event)
	}
	data, _ := event.Data.(map[string]any)
	if data["power"] != "austria" {
		t.Errorf("expected austria in event data, got %v", event.Data)
	}
}

func TestWebSocketRejectsForeignToken(t *testing.T) {
	env := newTestEnv()
	g1 := env.createGame(t, `{"name":"One"}`)
	g2 := env.createGame(t, `{"name":"Two"}`)

	rec := env.do(t, http.MethodGet, "/api/v1/games/"+g1.Game.ID+"/ws?token="+g2.Tokens["turkey"], "", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}
