package server

import (
	"stackstactoe/internal/engine"
	"stackstactoe/internal/game"
)

type gameView struct {
	ID              uint64  `json:"id"`
	PlayerOne       string  `json:"playerOne"`
	PlayerTwo       *string `json:"playerTwo"`
	BetAmount       uint64  `json:"betAmount"`
	BoardSize       int     `json:"boardSize"`
	Board           []int   `json:"board"`
	IsPlayerOneTurn bool    `json:"isPlayerOneTurn"`
	Status          string  `json:"status"`
	StatusCode      uint8   `json:"statusCode"`
	Winner          *string `json:"winner"`
	CurrentTurn     string  `json:"currentTurn,omitempty"`
	LastMoveBlock   uint64  `json:"lastMoveBlock"`
	CreatedBlock    uint64  `json:"createdBlock"`
	MoveCount       int     `json:"moveCount"`
	Result          string  `json:"result"`
	WinningLine     []int   `json:"winningLine,omitempty"`
}

func newGameView(g *game.Game) gameView {
	board := make([]int, len(g.Board))
	for i, m := range g.Board {
		board[i] = int(m)
	}
	v := gameView{
		ID:              g.ID,
		PlayerOne:       g.PlayerOne,
		PlayerTwo:       g.PlayerTwo,
		BetAmount:       g.BetAmount,
		BoardSize:       g.BoardSize,
		Board:           board,
		IsPlayerOneTurn: g.IsPlayerOneTurn,
		Status:          g.Status.String(),
		StatusCode:      g.Status.Code(),
		Winner:          g.Winner,
		CurrentTurn:     g.CurrentTurnPlayer(),
		LastMoveBlock:   g.LastMoveBlock,
		CreatedBlock:    g.CreatedBlock,
		MoveCount:       g.MoveCount,
		Result:          engine.NoResult.String(),
	}
	// result and line come from the board alone; a forfeit has neither
	if out, err := g.Outcome(); err == nil {
		v.Result = out.Result.String()
		v.WinningLine = out.Line
	}
	return v
}

type playerView struct {
	Address    string `json:"address"`
	Username   string `json:"username"`
	Wins       uint64 `json:"wins"`
	Losses     uint64 `json:"losses"`
	Draws      uint64 `json:"draws"`
	TotalGames uint64 `json:"totalGames"`
	Rating     int64  `json:"rating"`
}

func newPlayerView(p *game.Player) playerView {
	return playerView{
		Address:    p.Address,
		Username:   p.Username,
		Wins:       p.Wins,
		Losses:     p.Losses,
		Draws:      p.Draws,
		TotalGames: p.TotalGames,
		Rating:     p.Rating,
	}
}

type moveView struct {
	Seq      int    `json:"seq"`
	Player   string `json:"player"`
	Position int    `json:"position"`
	Mark     string `json:"mark"`
	Block    uint64 `json:"block"`
}

type cellView struct {
	GameID uint64 `json:"gameId"`
	Index  int    `json:"index"`
	Mark   int    `json:"mark"`
	Symbol string `json:"symbol"`
}

type timeRemainingView struct {
	GameID          uint64 `json:"gameId"`
	Status          string `json:"status"`
	LastMoveBlock   uint64 `json:"lastMoveBlock"`
	CurrentBlock    uint64 `json:"currentBlock"`
	TimeoutBlocks   uint64 `json:"timeoutBlocks"`
	BlocksRemaining uint64 `json:"blocksRemaining"`
	CanForfeit      bool   `json:"canForfeit"`
	EstimateSeconds int64  `json:"estimateSeconds"`
	Countdown       string `json:"countdown"`
	OnTurn          string `json:"onTurn,omitempty"`
	Waiting         string `json:"waiting,omitempty"`
}

func newTimeRemainingView(tr *game.TimeRemaining) timeRemainingView {
	return timeRemainingView{
		GameID:          tr.GameID,
		Status:          tr.Status.String(),
		LastMoveBlock:   tr.LastMoveBlock,
		CurrentBlock:    tr.CurrentBlock,
		TimeoutBlocks:   tr.TimeoutBlocks,
		BlocksRemaining: tr.BlocksRemaining,
		CanForfeit:      tr.CanForfeit,
		EstimateSeconds: int64(tr.Estimate.Seconds()),
		Countdown:       engine.FormatRemaining(tr.Estimate),
		OnTurn:          tr.OnTurn,
		Waiting:         tr.Waiting,
	}
}

type settingsView struct {
	MoveTimeoutBlocks uint64 `json:"moveTimeoutBlocks"`
	PlatformFeeBps    uint64 `json:"platformFeeBps"`
	Paused            bool   `json:"paused"`
}

func newSettingsView(s *game.Settings) settingsView {
	return settingsView{
		MoveTimeoutBlocks: s.MoveTimeoutBlocks,
		PlatformFeeBps:    s.PlatformFeeBps,
		Paused:            s.Paused,
	}
}
