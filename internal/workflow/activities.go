package temporal

import (
	"context"
	"errors"
	"log"
	"time"

	"stackstactoe/internal/game"
)

// TimeoutLedger is the part of the ledger the forfeiture watcher drives.
type TimeoutLedger interface {
	TimeRemaining(ctx context.Context, id uint64) (*game.TimeRemaining, error)
	ClaimTimeout(ctx context.Context, caller string, id uint64) (*game.Game, error)
}

// TimeoutCheck is what the watcher learns about a game on each poll.
type TimeoutCheck struct {
	GameID          uint64
	Finished        bool
	CanForfeit      bool
	BlocksRemaining uint64
	Wait            time.Duration
	Claimant        string
}

type Activities struct {
	Ledger TimeoutLedger
}

func (a *Activities) CheckTimeout(ctx context.Context, gameID uint64) (TimeoutCheck, error) {
	tr, err := a.Ledger.TimeRemaining(ctx, gameID)
	if errors.Is(err, game.ErrGameNotFound) {
		return TimeoutCheck{GameID: gameID, Finished: true}, nil
	}
	if err != nil {
		return TimeoutCheck{}, err
	}
	if tr.Status != game.StatusActive {
		return TimeoutCheck{GameID: gameID, Finished: true}, nil
	}
	return TimeoutCheck{
		GameID:          gameID,
		CanForfeit:      tr.CanForfeit,
		BlocksRemaining: tr.BlocksRemaining,
		Wait:            tr.Estimate,
		Claimant:        tr.Waiting,
	}, nil
}

// ClaimTimeout forfeits the game on behalf of claimant. It reports false,
// without error, when the game moved on since it was checked.
func (a *Activities) ClaimTimeout(ctx context.Context, gameID uint64, claimant string) (bool, error) {
	_, err := a.Ledger.ClaimTimeout(ctx, claimant, gameID)
	switch {
	case err == nil:
		log.Printf("Game %d forfeited in favour of %s", gameID, claimant)
		return true, nil
	case errors.Is(err, game.ErrGameFinished),
		errors.Is(err, game.ErrGameNotActive),
		errors.Is(err, game.ErrGameNotFound),
		errors.Is(err, game.ErrCannotClaim),
		errors.Is(err, game.ErrTimeoutNotReached):
		log.Printf("Skipping timeout claim for game %d: %v", gameID, err)
		return false, nil
	default:
		return false, err
	}
}
