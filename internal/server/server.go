package server

import (
	"log"
	"net/http"

	"stackstactoe/config"
	"stackstactoe/internal/game"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// EventSource streams committed events of one game.
type EventSource interface {
	SubscribeGame(gameID uint64, fn func(game.Event)) (func(), error)
}

type Server struct {
	ledger   *game.Ledger
	events   EventSource
	upgrader websocket.Upgrader
}

// New builds the API. events may be nil, in which case the live feed
// answers 503.
func New(ledger *game.Ledger, events EventSource) *Server {
	return &Server{
		ledger: ledger,
		events: events,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests, withCaller)

	r.HandleFunc("/players", s.registerPlayer).Methods(http.MethodPost)
	r.HandleFunc("/players/{address}", s.getPlayer).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard", s.leaderboard).Methods(http.MethodGet)

	r.HandleFunc("/games", s.listGames).Methods(http.MethodGet)
	r.HandleFunc("/games", s.createGame).Methods(http.MethodPost)
	r.HandleFunc("/games/latest", s.latestGame).Methods(http.MethodGet)

	g := r.PathPrefix("/games/{id:[0-9]+}").Subrouter()
	g.HandleFunc("", s.getGame).Methods(http.MethodGet)
	g.HandleFunc("/cells/{index:-?[0-9]+}", s.getCell).Methods(http.MethodGet)
	g.HandleFunc("/moves", s.listMoves).Methods(http.MethodGet)
	g.HandleFunc("/moves", s.play).Methods(http.MethodPost)
	g.HandleFunc("/time-remaining", s.timeRemaining).Methods(http.MethodGet)
	g.HandleFunc("/join", s.joinGame).Methods(http.MethodPost)
	g.HandleFunc("/forfeit", s.forfeit).Methods(http.MethodPost)
	g.HandleFunc("/cancel", s.cancelGame).Methods(http.MethodPost)
	g.HandleFunc("/claim", s.claimReward).Methods(http.MethodPost)
	g.HandleFunc("/events", s.gameEvents).Methods(http.MethodGet)

	a := r.PathPrefix("/admin").Subrouter()
	a.HandleFunc("/settings", s.getSettings).Methods(http.MethodGet)
	a.HandleFunc("/settings", s.updateSettings).Methods(http.MethodPut)
	a.HandleFunc("/pause", s.pause).Methods(http.MethodPost)
	a.HandleFunc("/unpause", s.unpause).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errNotFound)
	})
	return r
}

func StartServer(cfg *config.Config, srv *Server) {
	port := ":" + cfg.Server.Port
	log.Printf("Server is listening on port%s", port)
	if err := http.ListenAndServe(port, srv.Router()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
