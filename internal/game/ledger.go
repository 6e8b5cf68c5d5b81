package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"stackstactoe/internal/chain"
	"stackstactoe/internal/engine"
)

type Options struct {
	Admin             string
	MinBet            uint64
	MoveTimeoutBlocks uint64
	PlatformFeeBps    uint64
	BlockInterval     time.Duration
}

// Ledger is the authoritative record of games. Writes are applied one at a
// time, in the order they arrive, each inside a single store transaction.
type Ledger struct {
	mu       sync.Mutex
	store    Store
	blocks   chain.BlockSource
	opts     Options
	notifier Notifier
	watcher  Watcher
}

func NewLedger(store Store, blocks chain.BlockSource, opts Options) *Ledger {
	if opts.MoveTimeoutBlocks < MinMoveTimeoutBlocks {
		opts.MoveTimeoutBlocks = MinMoveTimeoutBlocks
	}
	if opts.PlatformFeeBps > maxFeeBps {
		opts.PlatformFeeBps = maxFeeBps
	}
	if opts.MinBet == 0 {
		opts.MinBet = 1
	}
	if opts.BlockInterval <= 0 {
		opts.BlockInterval = engine.DefaultBlockInterval
	}
	return &Ledger{store: store, blocks: blocks, opts: opts}
}

func (l *Ledger) SetNotifier(n Notifier) { l.notifier = n }
func (l *Ledger) SetWatcher(w Watcher)   { l.watcher = w }

// commit runs fn at the current block inside one transaction and publishes
// the returned events once it is durable.
func (l *Ledger) commit(ctx context.Context, fn func(tx Store, block uint64) ([]Event, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	block, err := l.blocks.CurrentBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to read block height: %w", err)
	}

	var events []Event
	err = l.store.Atomic(ctx, func(tx Store) error {
		evs, err := fn(tx, block)
		if err != nil {
			return err
		}
		events = evs
		return nil
	})
	if err != nil {
		return err
	}

	l.publish(ctx, events)
	return nil
}

func (l *Ledger) publish(ctx context.Context, events []Event) {
	if l.notifier == nil {
		return
	}
	for _, ev := range events {
		if err := l.notifier.Publish(ctx, ev); err != nil {
			log.Printf("Error publishing %s event %s: %v", ev.Type, ev.ID, err)
		}
	}
}

func (l *Ledger) settings(ctx context.Context, tx Store) (*Settings, error) {
	s, err := tx.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &Settings{
			MoveTimeoutBlocks: l.opts.MoveTimeoutBlocks,
			PlatformFeeBps:    l.opts.PlatformFeeBps,
		}
	}
	return s, nil
}

func (l *Ledger) writable(ctx context.Context, tx Store) (*Settings, error) {
	s, err := l.settings(ctx, tx)
	if err != nil {
		return nil, err
	}
	if s.Paused {
		return nil, ErrPaused
	}
	return s, nil
}

func requireCaller(caller string) error {
	if strings.TrimSpace(caller) == "" {
		return ErrMissingCaller
	}
	return nil
}

func validUsername(name string) bool {
	if len(name) == 0 || len(name) > 32 || strings.TrimSpace(name) != name {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return false
		}
	}
	return true
}

func (l *Ledger) RegisterPlayer(ctx context.Context, caller, username string) (*Player, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}

	var out *Player
	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		owner, err := tx.PlayerByUsername(ctx, username)
		switch {
		case err == nil && owner.Address != caller:
			return nil, ErrUsernameTaken
		case err != nil && !errors.Is(err, ErrNotRegistered):
			return nil, err
		}

		p, err := tx.LoadPlayer(ctx, caller)
		if errors.Is(err, ErrNotRegistered) {
			p = &Player{Address: caller, Rating: InitialRating}
		} else if err != nil {
			return nil, err
		}
		p.Username = username
		if err := tx.SavePlayer(ctx, p); err != nil {
			return nil, err
		}
		out = p

		ev := newEvent(EventPlayerRegistered, block)
		ev.Player = caller
		ev.Username = username
		return []Event{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateGame opens a game with the creator's first mark already placed.
func (l *Ledger) CreateGame(ctx context.Context, caller string, bet uint64, moveIndex, boardSize int) (*Game, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if bet == 0 || bet < l.opts.MinBet || bet > MaxBet {
		return nil, fmt.Errorf("%w: %d (minimum %d)", ErrInvalidBet, bet, l.opts.MinBet)
	}
	board, err := engine.NewBoard(boardSize)
	if err != nil {
		return nil, err
	}
	if err := engine.ValidateMove(board, boardSize, moveIndex); err != nil {
		return nil, err
	}

	var out *Game
	err = l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		if _, err := l.writable(ctx, tx); err != nil {
			return nil, err
		}
		if _, err := tx.LoadPlayer(ctx, caller); err != nil {
			return nil, err
		}

		id, err := tx.NextGameID(ctx)
		if err != nil {
			return nil, err
		}
		g := &Game{
			ID:              id,
			PlayerOne:       caller,
			BetAmount:       bet,
			BoardSize:       boardSize,
			Board:           engine.ApplyMove(board, moveIndex, engine.PlayerOne),
			IsPlayerOneTurn: false,
			Status:          StatusWaiting,
			LastMoveBlock:   block,
			CreatedBlock:    block,
			MoveCount:       1,
		}
		if err := tx.InsertGame(ctx, g); err != nil {
			return nil, err
		}
		if err := tx.AppendMove(ctx, Move{GameID: id, Seq: 1, Player: caller, Position: moveIndex, Mark: engine.PlayerOne, Block: block}); err != nil {
			return nil, err
		}
		out = g

		ev := gameEvent(EventGameCreated, g, block)
		ev.Player = caller
		ev.BoardSize = boardSize
		ev.BetAmount = bet
		ev.Position = &moveIndex
		return []Event{ev}, nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Game %d created by %s (board %dx%d, bet %d)", out.ID, caller, boardSize, boardSize, bet)
	return out, nil
}

// JoinGame seats the caller as player two, placing their first mark.
func (l *Ledger) JoinGame(ctx context.Context, caller string, id uint64, moveIndex int, stake uint64) (*Game, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var out *Game
	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		s, err := l.writable(ctx, tx)
		if err != nil {
			return nil, err
		}
		g, err := tx.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g.Status.Terminal() {
			return nil, ErrGameFinished
		}
		if g.Status != StatusWaiting {
			return nil, ErrGameNotOpen
		}
		if caller == g.PlayerOne {
			return nil, ErrSelfPlay
		}
		if _, err := tx.LoadPlayer(ctx, caller); err != nil {
			return nil, err
		}
		if stake != g.BetAmount {
			return nil, fmt.Errorf("%w: stake %d must equal bet %d", ErrInvalidBet, stake, g.BetAmount)
		}
		if err := engine.ValidateMove(g.Board, g.BoardSize, moveIndex); err != nil {
			return nil, err
		}

		joiner := caller
		g.PlayerTwo = &joiner
		g.Status = StatusActive
		events, err := l.place(ctx, tx, g, s, caller, engine.PlayerTwo, moveIndex, block)
		if err != nil {
			return nil, err
		}
		out = g

		ev := gameEvent(EventGameJoined, g, block)
		ev.Player = caller
		ev.Position = &moveIndex
		return append([]Event{ev}, events...), nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Game %d joined by %s", id, caller)
	if l.watcher != nil && out.Status == StatusActive {
		if err := l.watcher.WatchGame(ctx, id); err != nil {
			log.Printf("Error starting timeout watcher for game %d: %v", id, err)
		}
	}
	return out, nil
}

// Play places the caller's mark for their turn and settles the game if the
// move ends it.
func (l *Ledger) Play(ctx context.Context, caller string, id uint64, moveIndex int) (*Game, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var out *Game
	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		s, err := l.writable(ctx, tx)
		if err != nil {
			return nil, err
		}
		g, err := tx.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g.Status.Terminal() {
			return nil, ErrGameFinished
		}
		if g.Status != StatusActive {
			return nil, ErrGameNotActive
		}
		mark := g.MarkOf(caller)
		if mark == engine.Empty {
			return nil, ErrNotParticipant
		}
		if caller != g.CurrentTurnPlayer() {
			return nil, ErrNotYourTurn
		}
		if err := engine.ValidateMove(g.Board, g.BoardSize, moveIndex); err != nil {
			return nil, err
		}

		events, err := l.place(ctx, tx, g, s, caller, mark, moveIndex, block)
		if err != nil {
			return nil, err
		}
		out = g
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// place applies an already validated move, evaluates the board and persists
// the result.
func (l *Ledger) place(ctx context.Context, tx Store, g *Game, s *Settings, player string, mark engine.Mark, index int, block uint64) ([]Event, error) {
	g.Board = engine.ApplyMove(g.Board, index, mark)
	g.MoveCount++
	g.LastMoveBlock = block

	mv := gameEvent(EventMoveMade, g, block)
	mv.Player = player
	mv.Position = &index
	events := []Event{mv}

	outcome, err := engine.EvaluateOutcome(g.Board, g.BoardSize)
	if err != nil {
		return nil, err
	}

	switch outcome.Result {
	case engine.Win:
		ev, err := l.finish(ctx, tx, g, s, g.PlayerFor(outcome.Mark), StatusEnded, block)
		if err != nil {
			return nil, err
		}
		ev.Outcome = OutcomeWin
		ev.Line = outcome.Line
		events = append(events, ev)
	case engine.Draw:
		ev, err := l.finish(ctx, tx, g, s, "", StatusEnded, block)
		if err != nil {
			return nil, err
		}
		ev.Outcome = OutcomeDraw
		events = append(events, ev)
	default:
		g.IsPlayerOneTurn = mark == engine.PlayerTwo
	}

	if err := tx.UpdateGame(ctx, g); err != nil {
		return nil, err
	}
	if err := tx.AppendMove(ctx, Move{GameID: g.ID, Seq: g.MoveCount, Player: player, Position: index, Mark: mark, Block: block}); err != nil {
		return nil, err
	}
	return events, nil
}

// finish moves g to a terminal status, books payouts and updates both
// players' records. winner is "" for a draw.
func (l *Ledger) finish(ctx context.Context, tx Store, g *Game, s *Settings, winner string, status Status, block uint64) (Event, error) {
	g.Status = status
	if winner != "" {
		w := winner
		g.Winner = &w
	}

	for _, p := range settle(g, winner, s.PlatformFeeBps) {
		if err := tx.InsertPayout(ctx, p); err != nil {
			return Event{}, err
		}
	}

	if g.PlayerTwo != nil {
		one, err := tx.LoadPlayer(ctx, g.PlayerOne)
		if err != nil {
			return Event{}, err
		}
		two, err := tx.LoadPlayer(ctx, *g.PlayerTwo)
		if err != nil {
			return Event{}, err
		}
		score := 0.5
		switch winner {
		case g.PlayerOne:
			score = 1
		case *g.PlayerTwo:
			score = 0
		}
		recordResult(one, two, score)
		if err := tx.SavePlayer(ctx, one); err != nil {
			return Event{}, err
		}
		if err := tx.SavePlayer(ctx, two); err != nil {
			return Event{}, err
		}
	}

	if winner != "" {
		log.Printf("Game %d finished (%s), winner %s", g.ID, status, winner)
	} else {
		log.Printf("Game %d finished in a draw", g.ID)
	}

	ev := gameEvent(EventGameFinished, g, block)
	ev.Winner = winner
	return ev, nil
}

// ClaimTimeout ends an active game in favour of the waiting player once the
// player on turn has let the move timeout elapse.
func (l *Ledger) ClaimTimeout(ctx context.Context, caller string, id uint64) (*Game, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var out *Game
	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		s, err := l.settings(ctx, tx)
		if err != nil {
			return nil, err
		}
		g, err := tx.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g.Status.Terminal() {
			return nil, ErrGameFinished
		}
		if g.Status != StatusActive {
			return nil, ErrGameNotActive
		}
		if !g.IsParticipant(caller) {
			return nil, ErrNotParticipant
		}
		if caller != g.WaitingPlayer() {
			return nil, ErrCannotClaim
		}
		remaining := engine.ComputeTimeRemaining(g.LastMoveBlock, s.MoveTimeoutBlocks, block)
		if remaining > 0 {
			return nil, fmt.Errorf("%w: %d blocks remaining", ErrTimeoutNotReached, remaining)
		}

		ev, err := l.finish(ctx, tx, g, s, caller, StatusForfeited, block)
		if err != nil {
			return nil, err
		}
		ev.Outcome = OutcomeForfeit
		if err := tx.UpdateGame(ctx, g); err != nil {
			return nil, err
		}
		out = g
		return []Event{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelGame withdraws a game nobody has joined yet and refunds the creator.
func (l *Ledger) CancelGame(ctx context.Context, caller string, id uint64) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		g, err := tx.LoadGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g.Status != StatusWaiting {
			return nil, ErrGameNotOpen
		}
		if caller != g.PlayerOne {
			return nil, ErrNotGameCreator
		}
		if g.BetAmount > 0 {
			if err := tx.InsertPayout(ctx, Payout{GameID: id, Player: caller, Amount: g.BetAmount}); err != nil {
				return nil, err
			}
		}
		if err := tx.DeleteGame(ctx, id); err != nil {
			return nil, err
		}

		ev := gameEvent(EventGameCancelled, g, block)
		ev.Player = caller
		ev.Amount = g.BetAmount
		return []Event{ev}, nil
	})
	if err != nil {
		return err
	}
	log.Printf("Game %d cancelled by %s", id, caller)
	return nil
}

// ClaimReward marks the caller's payout for a game as collected and returns
// its amount.
func (l *Ledger) ClaimReward(ctx context.Context, caller string, id uint64) (uint64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	var amount uint64
	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		p, err := tx.LoadPayout(ctx, id, caller)
		if err != nil {
			return nil, err
		}
		if p.Claimed {
			return nil, ErrAlreadyClaimed
		}
		if err := tx.MarkPayoutClaimed(ctx, id, caller); err != nil {
			return nil, err
		}
		amount = p.Amount

		ev := newEvent(EventRewardClaimed, block)
		gid := id
		ev.GameID = &gid
		ev.Player = caller
		ev.Amount = p.Amount
		return []Event{ev}, nil
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

func (l *Ledger) Game(ctx context.Context, id uint64) (*Game, error) {
	return l.store.LoadGame(ctx, id)
}

// Cell reads a single board cell by index.
func (l *Ledger) Cell(ctx context.Context, id uint64, index int) (engine.Mark, error) {
	g, err := l.store.LoadGame(ctx, id)
	if err != nil {
		return engine.Empty, err
	}
	if index < 0 || index >= g.BoardSize*g.BoardSize {
		return engine.Empty, &engine.MoveError{Kind: engine.ErrInvalidMove, Index: index, Size: g.BoardSize}
	}
	return l.store.Cell(ctx, id, index)
}

func (l *Ledger) Moves(ctx context.Context, id uint64) ([]Move, error) {
	if _, err := l.store.LoadGame(ctx, id); err != nil {
		return nil, err
	}
	return l.store.Moves(ctx, id)
}

func (l *Ledger) Games(ctx context.Context, offset, limit int) ([]*Game, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return l.store.ListGames(ctx, offset, limit)
}

// LatestGameID returns the highest id handed out so far.
func (l *Ledger) LatestGameID(ctx context.Context) (uint64, bool, error) {
	return l.store.LatestGameID(ctx)
}

func (l *Ledger) TimeRemaining(ctx context.Context, id uint64) (*TimeRemaining, error) {
	g, err := l.store.LoadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := l.settings(ctx, l.store)
	if err != nil {
		return nil, err
	}
	block, err := l.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read block height: %w", err)
	}

	tr := &TimeRemaining{
		GameID:        g.ID,
		Status:        g.Status,
		LastMoveBlock: g.LastMoveBlock,
		CurrentBlock:  block,
		TimeoutBlocks: s.MoveTimeoutBlocks,
	}
	if g.Status == StatusActive {
		tr.BlocksRemaining = engine.ComputeTimeRemaining(g.LastMoveBlock, s.MoveTimeoutBlocks, block)
		tr.CanForfeit = tr.BlocksRemaining == 0
		tr.Estimate = engine.EstimateDuration(tr.BlocksRemaining, l.opts.BlockInterval)
		tr.OnTurn = g.CurrentTurnPlayer()
		tr.Waiting = g.WaitingPlayer()
	}
	return tr, nil
}

func (l *Ledger) Player(ctx context.Context, address string) (*Player, error) {
	return l.store.LoadPlayer(ctx, address)
}

func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]Player, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return l.store.Leaderboard(ctx, limit)
}

func (l *Ledger) Settings(ctx context.Context) (*Settings, error) {
	return l.settings(ctx, l.store)
}

// BlockInterval is the display estimate used for countdowns.
func (l *Ledger) BlockInterval() time.Duration { return l.opts.BlockInterval }

func (l *Ledger) requireAdmin(caller string) error {
	if l.opts.Admin == "" || caller != l.opts.Admin {
		return ErrNotAdmin
	}
	return nil
}

func (l *Ledger) updateSettings(ctx context.Context, caller string, fn func(s *Settings) error) (*Settings, error) {
	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	var out *Settings
	err := l.commit(ctx, func(tx Store, block uint64) ([]Event, error) {
		s, err := l.settings(ctx, tx)
		if err != nil {
			return nil, err
		}
		if err := fn(s); err != nil {
			return nil, err
		}
		if err := tx.SaveSettings(ctx, s); err != nil {
			return nil, err
		}
		out = s
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) SetMoveTimeout(ctx context.Context, caller string, blocks uint64) (*Settings, error) {
	return l.updateSettings(ctx, caller, func(s *Settings) error {
		if blocks < MinMoveTimeoutBlocks {
			return ErrInvalidTimeout
		}
		s.MoveTimeoutBlocks = blocks
		return nil
	})
}

func (l *Ledger) SetPlatformFee(ctx context.Context, caller string, bps uint64) (*Settings, error) {
	return l.updateSettings(ctx, caller, func(s *Settings) error {
		if bps > maxFeeBps {
			return ErrInvalidFee
		}
		s.PlatformFeeBps = bps
		return nil
	})
}

func (l *Ledger) SetPaused(ctx context.Context, caller string, paused bool) (*Settings, error) {
	return l.updateSettings(ctx, caller, func(s *Settings) error {
		s.Paused = paused
		return nil
	})
}
