package game

import (
	"math"
)

const (
	ratingK   = 32.0
	maxFeeBps = 1000
	bpsDenom  = 10000

	MinMoveTimeoutBlocks = 10
	// MaxBet keeps the two-stake pot within a signed 64-bit column, the
	// widest integer database/sql binds.
	MaxBet = math.MaxInt64 / 2
)

// platformFee is pot*feeBps/10000 without overflowing the intermediate.
func platformFee(pot, feeBps uint64) uint64 {
	return pot/bpsDenom*feeBps + (pot%bpsDenom)*feeBps/bpsDenom
}

// settle returns the payouts owed when g reaches a terminal state. winner is
// "" for a draw.
func settle(g *Game, winner string, feeBps uint64) []Payout {
	if g.BetAmount == 0 {
		return nil
	}
	if winner == "" {
		out := []Payout{{GameID: g.ID, Player: g.PlayerOne, Amount: g.BetAmount}}
		if g.PlayerTwo != nil {
			out = append(out, Payout{GameID: g.ID, Player: *g.PlayerTwo, Amount: g.BetAmount})
		}
		return out
	}
	pot := g.BetAmount * 2
	return []Payout{{GameID: g.ID, Player: winner, Amount: pot - platformFee(pot, feeBps)}}
}

func expectedScore(rating, opponent int64) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

func adjust(rating, opponent int64, score float64) int64 {
	next := rating + int64(math.Round(ratingK*(score-expectedScore(rating, opponent))))
	if next < 0 {
		return 0
	}
	return next
}

// recordResult updates both players' statistics and Elo ratings.
func recordResult(a, b *Player, aScore float64) {
	ra, rb := a.Rating, b.Rating
	a.Rating = adjust(ra, rb, aScore)
	b.Rating = adjust(rb, ra, 1-aScore)
	a.TotalGames++
	b.TotalGames++

	switch aScore {
	case 1:
		a.Wins++
		b.Losses++
	case 0:
		a.Losses++
		b.Wins++
	default:
		a.Draws++
		b.Draws++
	}
}
