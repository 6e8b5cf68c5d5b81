package game

import (
	"context"

	"stackstactoe/internal/engine"
)

// Store is the persistence the ledger commits to. Lookups of missing rows
// return ErrGameNotFound, ErrNotRegistered or ErrNothingToClaim.
type Store interface {
	// Atomic runs fn against a transactional Store. Nothing fn wrote is
	// kept if it returns an error.
	Atomic(ctx context.Context, fn func(tx Store) error) error

	NextGameID(ctx context.Context) (uint64, error)
	LatestGameID(ctx context.Context) (uint64, bool, error)
	InsertGame(ctx context.Context, g *Game) error
	UpdateGame(ctx context.Context, g *Game) error
	LoadGame(ctx context.Context, id uint64) (*Game, error)
	DeleteGame(ctx context.Context, id uint64) error
	Cell(ctx context.Context, gameID uint64, index int) (engine.Mark, error)
	ListGames(ctx context.Context, offset, limit int) ([]*Game, error)

	AppendMove(ctx context.Context, m Move) error
	Moves(ctx context.Context, gameID uint64) ([]Move, error)

	LoadPlayer(ctx context.Context, address string) (*Player, error)
	PlayerByUsername(ctx context.Context, username string) (*Player, error)
	SavePlayer(ctx context.Context, p *Player) error
	Leaderboard(ctx context.Context, limit int) ([]Player, error)

	// LoadSettings returns nil when no settings were saved yet.
	LoadSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error

	InsertPayout(ctx context.Context, p Payout) error
	LoadPayout(ctx context.Context, gameID uint64, player string) (*Payout, error)
	MarkPayoutClaimed(ctx context.Context, gameID uint64, player string) error
}
