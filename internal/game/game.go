package game

import (
	"time"

	"stackstactoe/internal/engine"
)

// Status is the lifecycle state of a game.
type Status uint8

const (
	StatusWaiting Status = iota
	StatusActive
	StatusEnded
	StatusForfeited
)

// Ledger status codes. Waiting and Active share code 0 and are told apart by
// whether player two has joined.
const (
	CodeOpen      uint8 = 0
	CodeEnded     uint8 = 1
	CodeForfeited uint8 = 2
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "Waiting"
	case StatusActive:
		return "Active"
	case StatusEnded:
		return "Ended"
	case StatusForfeited:
		return "Forfeited"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further moves can be accepted.
func (s Status) Terminal() bool {
	return s == StatusEnded || s == StatusForfeited
}

// Code returns the 3-valued ledger code for s.
func (s Status) Code() uint8 {
	switch s {
	case StatusEnded:
		return CodeEnded
	case StatusForfeited:
		return CodeForfeited
	default:
		return CodeOpen
	}
}

// StatusFromCode rebuilds a Status from the stored code.
func StatusFromCode(code uint8, hasPlayerTwo bool) (Status, bool) {
	switch code {
	case CodeOpen:
		if hasPlayerTwo {
			return StatusActive, true
		}
		return StatusWaiting, true
	case CodeEnded:
		return StatusEnded, true
	case CodeForfeited:
		return StatusForfeited, true
	default:
		return 0, false
	}
}

type Game struct {
	ID              uint64
	PlayerOne       string
	PlayerTwo       *string
	BetAmount       uint64
	BoardSize       int
	Board           engine.Board
	IsPlayerOneTurn bool
	Status          Status
	Winner          *string
	LastMoveBlock   uint64
	CreatedBlock    uint64
	MoveCount       int
}

// CurrentTurnPlayer returns who must move next, or "" when the game is not
// active.
func (g *Game) CurrentTurnPlayer() string {
	if g.Status != StatusActive || g.PlayerTwo == nil {
		return ""
	}
	if g.IsPlayerOneTurn {
		return g.PlayerOne
	}
	return *g.PlayerTwo
}

// WaitingPlayer is the participant not on turn in an active game.
func (g *Game) WaitingPlayer() string {
	if g.Status != StatusActive || g.PlayerTwo == nil {
		return ""
	}
	if g.IsPlayerOneTurn {
		return *g.PlayerTwo
	}
	return g.PlayerOne
}

// MarkOf returns the mark player plays with in g, or engine.Empty.
func (g *Game) MarkOf(player string) engine.Mark {
	switch {
	case player == g.PlayerOne:
		return engine.PlayerOne
	case g.PlayerTwo != nil && player == *g.PlayerTwo:
		return engine.PlayerTwo
	default:
		return engine.Empty
	}
}

// PlayerFor maps a mark back to the participant holding it.
func (g *Game) PlayerFor(m engine.Mark) string {
	switch m {
	case engine.PlayerOne:
		return g.PlayerOne
	case engine.PlayerTwo:
		if g.PlayerTwo != nil {
			return *g.PlayerTwo
		}
	}
	return ""
}

func (g *Game) IsParticipant(player string) bool {
	return g.MarkOf(player) != engine.Empty
}

// Outcome evaluates the stored board.
func (g *Game) Outcome() (engine.Outcome, error) {
	return engine.EvaluateOutcome(g.Board, g.BoardSize)
}

// Clone returns a deep copy.
func (g *Game) Clone() *Game {
	c := *g
	c.Board = g.Board.Clone()
	if g.PlayerTwo != nil {
		p := *g.PlayerTwo
		c.PlayerTwo = &p
	}
	if g.Winner != nil {
		w := *g.Winner
		c.Winner = &w
	}
	return &c
}

const InitialRating int64 = 1000

type Player struct {
	Address    string
	Username   string
	Wins       uint64
	Losses     uint64
	Draws      uint64
	TotalGames uint64
	Rating     int64
}

type Move struct {
	GameID   uint64
	Seq      int
	Player   string
	Position int
	Mark     engine.Mark
	Block    uint64
}

type Settings struct {
	MoveTimeoutBlocks uint64
	PlatformFeeBps    uint64
	Paused            bool
}

type Payout struct {
	GameID  uint64
	Player  string
	Amount  uint64
	Claimed bool
}

// TimeRemaining is the forfeiture view of an active game.
type TimeRemaining struct {
	GameID          uint64
	Status          Status
	LastMoveBlock   uint64
	CurrentBlock    uint64
	TimeoutBlocks   uint64
	BlocksRemaining uint64
	CanForfeit      bool
	Estimate        time.Duration
	OnTurn          string
	Waiting         string
}
