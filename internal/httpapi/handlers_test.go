package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"

	"github.com/inseasoncup/cup-server/internal/cup"
	"github.com/inseasoncup/cup-server/internal/live"
	"github.com/inseasoncup/cup-server/internal/nhl"
	"github.com/inseasoncup/cup-server/internal/teamcat"
)

type apiEnv struct {
	srv      *httptest.Server
	store    *cup.Store
	resolver *cup.Resolver
	hub      *live.Hub

	mu    sync.Mutex
	paths map[string]string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &apiEnv{paths: make(map[string]string)}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		body, ok := env.paths[r.URL.Path]
		env.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(upstream.Close)

	teams, err := teamcat.New("")
	if err != nil {
		t.Fatalf("teamcat: %v", err)
	}

	api := nhl.NewClient(upstream.URL, nhl.WithTimeout(2*time.Second))
	env.store = cup.NewStore(rdb)
	roster := cup.NewDirectory(env.store)
	env.resolver = cup.NewResolver(api, time.UTC)
	engine := cup.NewEngine(env.store, env.resolver, api, roster)
	env.hub = live.NewHub()
	bcaster := live.NewBroadcaster(api, env.store, env.hub)

	server := NewServer(engine, env.store, roster, env.resolver, bcaster, env.hub, teams)
	env.srv = httptest.NewServer(server.Routes())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *apiEnv) setPath(path, body string) {
	e.mu.Lock()
	e.paths[path] = body
	e.mu.Unlock()
}

func (e *apiEnv) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	status, _ := env.do(t, http.MethodGet, "/healthz", "")
	if status != http.StatusOK {
		t.Fatalf("healthz status %d", status)
	}
}

func TestGameIDEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()

	status, body := env.do(t, http.MethodGet, "/gameid", "")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	var resp struct {
		GameID *int64 `json:"gameID"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.GameID != nil {
		t.Fatalf("expected null gameID, got %v", *resp.GameID)
	}

	if err := env.store.SetGameID(ctx, 777); err != nil {
		t.Fatalf("SetGameID: %v", err)
	}
	_, body = env.do(t, http.MethodGet, "/gameid", "")
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.GameID == nil || *resp.GameID != 777 {
		t.Fatalf("expected 777, got %v", resp.GameID)
	}
}

func TestChampionNotSet(t *testing.T) {
	env := newAPIEnv(t)
	status, _ := env.do(t, http.MethodGet, "/champion", "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestChampionRefreshesGameID(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	if err := env.store.SetChampion(ctx, "BOS"); err != nil {
		t.Fatalf("SetChampion: %v", err)
	}

	today := env.resolver.CandidateDates()[0]
	env.setPath("/schedule/"+today,
		`{"gameWeek":[{"date":"`+today+`","games":[{"id":888,"homeTeam":{"abbrev":"BOS"},"awayTeam":{"abbrev":"NYR"}}]}]}`)

	status, body := env.do(t, http.MethodGet, "/champion", "")
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var resp struct {
		Champion string `json:"champion"`
		GameID   *int64 `json:"gameID"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Champion != "BOS" {
		t.Fatalf("champion %q", resp.Champion)
	}
	if resp.GameID == nil || *resp.GameID != 888 {
		t.Fatalf("expected refreshed game id 888, got %v", resp.GameID)
	}

	opts, err := env.store.Options(ctx)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.GameID != 888 {
		t.Fatalf("stored id not refreshed: %d", opts.GameID)
	}
}

func TestChampionDegradesOnScheduleFailure(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	if err := env.store.SetChampion(ctx, "BOS"); err != nil {
		t.Fatalf("SetChampion: %v", err)
	}
	if err := env.store.SetGameID(ctx, 999); err != nil {
		t.Fatalf("SetGameID: %v", err)
	}
	// No schedule stubbed: the upstream answers 404 and the read degrades
	// to the stored id.

	status, body := env.do(t, http.MethodGet, "/champion", "")
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var resp struct {
		Champion string `json:"champion"`
		GameID   *int64 `json:"gameID"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.GameID == nil || *resp.GameID != 999 {
		t.Fatalf("expected stored id 999, got %v", resp.GameID)
	}
}

func TestCheckWithoutChampion(t *testing.T) {
	env := newAPIEnv(t)
	status, body := env.do(t, http.MethodPost, "/check", "")
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var result cup.TickResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Message != "No champion to check" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestPlayerByName(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	if err := env.store.SavePlayer(ctx, &cup.Player{ID: "p1", Name: "Alice", Teams: []string{"BOS"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	status, body := env.do(t, http.MethodGet, "/players/Alice", "")
	if status != http.StatusOK {
		t.Fatalf("status %d: %s", status, body)
	}
	var p cup.Player
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != "p1" {
		t.Fatalf("unexpected player: %+v", p)
	}

	status, _ = env.do(t, http.MethodGet, "/players/Nobody", "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestPatchTeams(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	if err := env.store.SavePlayer(ctx, &cup.Player{ID: "p1", Name: "Alice"}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	status, body := env.do(t, http.MethodPatch, "/players/p1/teams", `{"team":"bos"}`)
	if status != http.StatusOK {
		t.Fatalf("add status %d: %s", status, body)
	}
	var p cup.Player
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Teams) != 1 || p.Teams[0] != "BOS" {
		t.Fatalf("team not normalized and added: %v", p.Teams)
	}

	status, body = env.do(t, http.MethodPatch, "/players/p1/teams", `{"team":"BOS","action":"remove"}`)
	if status != http.StatusOK {
		t.Fatalf("remove status %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(p.Teams) != 0 {
		t.Fatalf("team not removed: %v", p.Teams)
	}

	status, _ = env.do(t, http.MethodPatch, "/players/p1/teams", `{"team":"ZZZ"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("unknown team: expected 400, got %d", status)
	}
	status, _ = env.do(t, http.MethodPatch, "/players/p1/teams", `{"team":"BOS","action":"explode"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("bad action: expected 400, got %d", status)
	}
	status, _ = env.do(t, http.MethodPatch, "/players/ghost/teams", `{"team":"BOS"}`)
	if status != http.StatusNotFound {
		t.Fatalf("unknown player: expected 404, got %d", status)
	}
}

func TestResetTeams(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	if err := env.store.SavePlayer(ctx, &cup.Player{ID: "p1", Name: "Alice", Teams: []string{"BOS"}}); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}

	status, _ := env.do(t, http.MethodPost, "/players/reset-teams", "")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	p, err := env.store.GetPlayer(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if len(p.Teams) != 0 {
		t.Fatalf("teams not cleared: %v", p.Teams)
	}
}

func TestGameRecordsList(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	rec := &cup.GameRecord{ID: 300, WTeam: "BOS", WScore: 3, LTeam: "NYR", LScore: 1, SavedAt: time.Now().UTC()}
	if _, err := env.store.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	status, body := env.do(t, http.MethodGet, "/game-records", "")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	var records []cup.GameRecord
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].ID != 300 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestWebsocketSubscribeReceivesBroadcast(t *testing.T) {
	env := newAPIEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := env.store.SetGameID(ctx, 777); err != nil {
		t.Fatalf("SetGameID: %v", err)
	}
	boxBody := `{"id":777,"gameState":"LIVE"}`
	env.setPath("/gamecenter/777/boxscore", boxBody)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "done")

	// The handshake returns before the handler registers the connection.
	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	status, body := env.do(t, http.MethodPost, "/broadcast", "")
	if status != http.StatusOK {
		t.Fatalf("broadcast status %d: %s", status, body)
	}

	_, raw, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m live.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if m.Type != "liveGameUpdate" || string(m.Payload) != boxBody {
		t.Fatalf("unexpected message: type=%q payload=%s", m.Type, m.Payload)
	}
}
