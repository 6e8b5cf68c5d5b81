package game

import (
	"context"

	"github.com/google/uuid"
)

type EventType string

const (
	EventPlayerRegistered EventType = "playerRegistered"
	EventGameCreated      EventType = "gameCreated"
	EventGameJoined       EventType = "gameJoined"
	EventMoveMade         EventType = "moveMade"
	EventGameFinished     EventType = "gameFinished"
	EventGameCancelled    EventType = "gameCancelled"
	EventRewardClaimed    EventType = "rewardClaimed"
)

// Finish outcomes carried by EventGameFinished.
const (
	OutcomeWin     = "WIN"
	OutcomeDraw    = "DRAW"
	OutcomeForfeit = "FORFEIT"
)

type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	GameID    *uint64   `json:"gameId,omitempty"`
	Player    string    `json:"player,omitempty"`
	Username  string    `json:"username,omitempty"`
	BoardSize int       `json:"boardSize,omitempty"`
	BetAmount uint64    `json:"betAmount,omitempty"`
	Position  *int      `json:"position,omitempty"`
	Board     string    `json:"board,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Winner    string    `json:"winner,omitempty"`
	Line      []int     `json:"line,omitempty"`
	Amount    uint64    `json:"amount,omitempty"`
	Block     uint64    `json:"block"`
}

// Notifier receives committed ledger events.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Watcher is started once a game becomes active so timeouts get claimed even
// when nobody is polling.
type Watcher interface {
	WatchGame(ctx context.Context, gameID uint64) error
}

func newEvent(t EventType, block uint64) Event {
	return Event{ID: uuid.NewString(), Type: t, Block: block}
}

func gameEvent(t EventType, g *Game, block uint64) Event {
	ev := newEvent(t, block)
	id := g.ID
	ev.GameID = &id
	ev.Board = g.Board.String()
	return ev
}
