package server

import (
	"log"
	"net/http"
	"time"

	"stackstactoe/internal/game"

	"github.com/gorilla/websocket"
)

const (
	feedBuffer   = 32
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type snapshotMessage struct {
	Type string   `json:"type"`
	Game gameView `json:"game"`
}

// gameEvents upgrades to a websocket and forwards every event of the game.
// The first message is a snapshot of the game at subscription time.
func (s *Server) gameEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.events == nil {
		writeError(w, errEventsUnavailable)
		return
	}

	// subscribe before reading the snapshot so no event falls in between
	feed := make(chan game.Event, feedBuffer)
	cancel, err := s.events.SubscribeGame(id, func(ev game.Event) {
		select {
		case feed <- ev:
		default:
			log.Printf("Dropping %s event for slow websocket on game %d", ev.Type, id)
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	g, err := s.ledger.Game(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v interface{}) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(v); err != nil {
			log.Printf("Error writing to websocket for game %d: %v", id, err)
			return false
		}
		return true
	}

	if !send(snapshotMessage{Type: "snapshot", Game: newGameView(g)}) {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case ev := <-feed:
			if !send(ev) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
