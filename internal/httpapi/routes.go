package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inseasoncup/cup-server/internal/cup"
	"github.com/inseasoncup/cup-server/internal/live"
	"github.com/inseasoncup/cup-server/internal/teamcat"
)

// Server wires the settlement trigger, the realtime subscribe endpoint and
// the read/draft surface consumed by the UI.
type Server struct {
	engine   *cup.Engine
	store    *cup.Store
	roster   *cup.Directory
	resolver *cup.Resolver
	bcaster  *live.Broadcaster
	hub      *live.Hub
	teams    *teamcat.Catalog
}

func NewServer(engine *cup.Engine, store *cup.Store, roster *cup.Directory, resolver *cup.Resolver, bcaster *live.Broadcaster, hub *live.Hub, teams *teamcat.Catalog) *Server {
	return &Server{
		engine:   engine,
		store:    store,
		roster:   roster,
		resolver: resolver,
		bcaster:  bcaster,
		hub:      hub,
		teams:    teams,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.healthz)
	r.Post("/check", s.checkGame)
	r.Post("/broadcast", s.broadcast)
	r.Get("/ws", s.subscribe)

	r.Get("/players", s.listPlayers)
	r.Post("/players/reset-teams", s.resetTeams)
	r.Get("/players/{name}", s.playerByName)
	r.Patch("/players/{id}/teams", s.patchTeams)

	r.Get("/game-records", s.listGameRecords)
	r.Get("/champion", s.champion)
	r.Get("/gameid", s.gameID)

	return r
}
