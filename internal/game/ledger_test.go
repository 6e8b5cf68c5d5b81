package game_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"stackstactoe/config"
	"stackstactoe/internal/chain"
	"stackstactoe/internal/db"
	"stackstactoe/internal/engine"
	"stackstactoe/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0xa11ce"
	bob   = "0xb0b"
	carol = "0xca401"
	admin = "0xad"
)

type recorder struct {
	mu      sync.Mutex
	events  []game.Event
	watched []uint64
}

func (r *recorder) Publish(_ context.Context, ev game.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) WatchGame(_ context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watched = append(r.watched, id)
	return nil
}

func (r *recorder) types() []game.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]game.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last() game.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type fixture struct {
	ctx    context.Context
	ledger *game.Ledger
	blocks *chain.Manual
	rec    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "ledger.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	blocks := chain.NewManual(100)
	l := game.NewLedger(db.NewStore(conn), blocks, game.Options{
		Admin:             admin,
		MinBet:            1,
		MoveTimeoutBlocks: 144,
		PlatformFeeBps:    500,
	})
	rec := &recorder{}
	l.SetNotifier(rec)
	l.SetWatcher(rec)

	f := &fixture{ctx: context.Background(), ledger: l, blocks: blocks, rec: rec}
	for addr, name := range map[string]string{alice: "alice", bob: "bob", carol: "carol"} {
		_, err := l.RegisterPlayer(f.ctx, addr, name)
		require.NoError(t, err)
	}
	return f
}

// start creates a game for alice at first and has bob join at second.
func (f *fixture) start(t *testing.T, size, first, second int) *game.Game {
	t.Helper()
	g, err := f.ledger.CreateGame(f.ctx, alice, 100, first, size)
	require.NoError(t, err)
	g, err = f.ledger.JoinGame(f.ctx, bob, g.ID, second, 100)
	require.NoError(t, err)
	return g
}

func TestFullGameWin(t *testing.T) {
	f := newFixture(t)

	g, err := f.ledger.CreateGame(f.ctx, alice, 100, 0, engine.SizeThree)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), g.ID, "first game id is zero")
	assert.Equal(t, game.StatusWaiting, g.Status)
	assert.False(t, g.IsPlayerOneTurn)
	assert.Equal(t, engine.PlayerOne, g.Board[0])

	g, err = f.ledger.JoinGame(f.ctx, bob, 0, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, game.StatusActive, g.Status)
	assert.True(t, g.IsPlayerOneTurn)
	assert.Equal(t, []uint64{0}, f.rec.watched)

	for _, step := range []struct {
		who string
		idx int
	}{{alice, 1}, {bob, 4}, {alice, 2}} {
		g, err = f.ledger.Play(f.ctx, step.who, 0, step.idx)
		require.NoError(t, err)
	}

	assert.Equal(t, game.StatusEnded, g.Status)
	require.NotNil(t, g.Winner)
	assert.Equal(t, alice, *g.Winner)

	stored, err := f.ledger.Game(f.ctx, 0)
	require.NoError(t, err)
	out, err := stored.Outcome()
	require.NoError(t, err)
	assert.Equal(t, engine.Win, out.Result)
	assert.Equal(t, []int{0, 1, 2}, out.Line)

	finished := f.rec.last()
	assert.Equal(t, game.EventGameFinished, finished.Type)
	assert.Equal(t, game.OutcomeWin, finished.Outcome)
	assert.Equal(t, alice, finished.Winner)
	assert.Equal(t, []int{0, 1, 2}, finished.Line)

	a, err := f.ledger.Player(f.ctx, alice)
	require.NoError(t, err)
	b, err := f.ledger.Player(f.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Wins)
	assert.Equal(t, uint64(1), b.Losses)
	assert.Equal(t, int64(1016), a.Rating)
	assert.Equal(t, int64(984), b.Rating)

	board, err := f.ledger.Leaderboard(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, alice, board[0].Address)

	moves, err := f.ledger.Moves(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, moves, 5)
	assert.Equal(t, []int{0, 3, 1, 4, 2}, []int{moves[0].Position, moves[1].Position, moves[2].Position, moves[3].Position, moves[4].Position})

	amount, err := f.ledger.ClaimReward(f.ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(190), amount, "pot of 200 less a 5% fee")

	_, err = f.ledger.ClaimReward(f.ctx, alice, 0)
	assert.ErrorIs(t, err, game.ErrAlreadyClaimed)
	_, err = f.ledger.ClaimReward(f.ctx, bob, 0)
	assert.ErrorIs(t, err, game.ErrNothingToClaim)

	_, err = f.ledger.Play(f.ctx, bob, 0, 8)
	assert.ErrorIs(t, err, game.ErrGameFinished)
}

func TestDrawRefundsBothPlayers(t *testing.T) {
	f := newFixture(t)
	g := f.start(t, engine.SizeThree, 0, 1)

	var err error
	for _, step := range []struct {
		who string
		idx int
	}{{alice, 2}, {bob, 4}, {alice, 3}, {bob, 5}, {alice, 7}, {bob, 6}, {alice, 8}} {
		g, err = f.ledger.Play(f.ctx, step.who, g.ID, step.idx)
		require.NoError(t, err)
	}

	assert.Equal(t, game.StatusEnded, g.Status)
	assert.Nil(t, g.Winner)
	assert.Equal(t, game.OutcomeDraw, f.rec.last().Outcome)

	for _, p := range []string{alice, bob} {
		amount, err := f.ledger.ClaimReward(f.ctx, p, g.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), amount)

		stats, err := f.ledger.Player(f.ctx, p)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.Draws)
		assert.Equal(t, game.InitialRating, stats.Rating)
	}
}

func TestFiveByFiveWin(t *testing.T) {
	f := newFixture(t)
	g := f.start(t, engine.SizeFive, 0, 5)

	var err error
	for _, step := range []struct {
		who string
		idx int
	}{{alice, 6}, {bob, 10}, {alice, 12}, {bob, 15}, {alice, 18}, {bob, 20}, {alice, 24}} {
		g, err = f.ledger.Play(f.ctx, step.who, g.ID, step.idx)
		require.NoError(t, err)
	}

	assert.Equal(t, game.StatusEnded, g.Status)
	require.NotNil(t, g.Winner)
	assert.Equal(t, alice, *g.Winner)
	assert.Equal(t, []int{0, 6, 12, 18, 24}, f.rec.last().Line)
}

func TestLaterGamesSeeEarlierMarks(t *testing.T) {
	f := newFixture(t)

	for want := uint64(0); want < 2; want++ {
		g, err := f.ledger.CreateGame(f.ctx, alice, 100, 4, engine.SizeThree)
		require.NoError(t, err)
		assert.Equal(t, want, g.ID)

		_, err = f.ledger.JoinGame(f.ctx, bob, g.ID, 4, 100)
		assert.ErrorIs(t, err, engine.ErrCellOccupied, "game %d", g.ID)
	}

	g, err := f.ledger.JoinGame(f.ctx, bob, 1, 0, 100)
	require.NoError(t, err)
	for _, step := range []struct {
		who string
		idx int
	}{{alice, 3}, {bob, 1}, {alice, 5}} {
		g, err = f.ledger.Play(f.ctx, step.who, 1, step.idx)
		require.NoError(t, err)
	}
	assert.Equal(t, game.StatusEnded, g.Status)
	require.NotNil(t, g.Winner)
	assert.Equal(t, alice, *g.Winner)
	assert.Equal(t, []int{3, 4, 5}, f.rec.last().Line)

	open, err := f.ledger.Game(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, game.StatusWaiting, open.Status)
	assert.Equal(t, 1, open.Board.Count(engine.PlayerOne))
	assert.Equal(t, 0, open.Board.Count(engine.PlayerTwo))
}

func TestWinAtMaxBet(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateGame(f.ctx, alice, game.MaxBet+1, 0, engine.SizeThree)
	assert.ErrorIs(t, err, game.ErrInvalidBet)

	g, err := f.ledger.CreateGame(f.ctx, alice, game.MaxBet, 0, engine.SizeThree)
	require.NoError(t, err)
	g, err = f.ledger.JoinGame(f.ctx, bob, g.ID, 3, game.MaxBet)
	require.NoError(t, err)
	for _, step := range []struct {
		who string
		idx int
	}{{alice, 1}, {bob, 4}, {alice, 2}} {
		g, err = f.ledger.Play(f.ctx, step.who, g.ID, step.idx)
		require.NoError(t, err)
	}
	require.Equal(t, game.StatusEnded, g.Status)

	pot := uint64(game.MaxBet) * 2
	amount, err := f.ledger.ClaimReward(f.ctx, alice, g.ID)
	require.NoError(t, err)
	assert.Equal(t, pot-pot/20, amount, "5% fee")
}

func TestMoveRejections(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateGame(f.ctx, "0xnobody", 100, 0, 3)
	assert.ErrorIs(t, err, game.ErrNotRegistered)
	_, err = f.ledger.CreateGame(f.ctx, alice, 0, 0, 3)
	assert.ErrorIs(t, err, game.ErrInvalidBet)
	_, err = f.ledger.CreateGame(f.ctx, alice, 100, 0, 4)
	assert.ErrorIs(t, err, engine.ErrInvalidBoardSize)
	_, err = f.ledger.CreateGame(f.ctx, alice, 100, 9, 3)
	assert.ErrorIs(t, err, engine.ErrInvalidMove)
	_, err = f.ledger.CreateGame(f.ctx, "", 100, 0, 3)
	assert.ErrorIs(t, err, game.ErrMissingCaller)

	g, err := f.ledger.CreateGame(f.ctx, alice, 100, 4, 3)
	require.NoError(t, err)

	_, err = f.ledger.Play(f.ctx, alice, g.ID, 0)
	assert.ErrorIs(t, err, game.ErrGameNotActive)
	_, err = f.ledger.JoinGame(f.ctx, alice, g.ID, 0, 100)
	assert.ErrorIs(t, err, game.ErrSelfPlay)
	_, err = f.ledger.JoinGame(f.ctx, bob, g.ID, 0, 99)
	assert.ErrorIs(t, err, game.ErrInvalidBet)
	_, err = f.ledger.JoinGame(f.ctx, bob, g.ID, 4, 100)
	assert.ErrorIs(t, err, engine.ErrCellOccupied)
	_, err = f.ledger.JoinGame(f.ctx, bob, 99, 0, 100)
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	_, err = f.ledger.JoinGame(f.ctx, bob, g.ID, 0, 100)
	require.NoError(t, err)

	_, err = f.ledger.JoinGame(f.ctx, carol, g.ID, 1, 100)
	assert.ErrorIs(t, err, game.ErrGameNotOpen)
	_, err = f.ledger.Play(f.ctx, bob, g.ID, 1)
	assert.ErrorIs(t, err, game.ErrNotYourTurn)
	_, err = f.ledger.Play(f.ctx, carol, g.ID, 1)
	assert.ErrorIs(t, err, game.ErrNotParticipant)
	_, err = f.ledger.Play(f.ctx, alice, g.ID, 0)
	assert.ErrorIs(t, err, engine.ErrCellOccupied)
	_, err = f.ledger.Play(f.ctx, alice, g.ID, -1)
	assert.ErrorIs(t, err, engine.ErrInvalidMove)

	after, err := f.ledger.Game(f.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.MoveCount, "rejected moves leave no trace")
	assert.True(t, after.IsPlayerOneTurn)
}

func TestTimeoutForfeit(t *testing.T) {
	f := newFixture(t)
	g := f.start(t, engine.SizeThree, 0, 4)
	assert.Equal(t, uint64(100), g.LastMoveBlock)

	f.blocks.Set(200)
	tr, err := f.ledger.TimeRemaining(f.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(44), tr.BlocksRemaining)
	assert.False(t, tr.CanForfeit)
	assert.Equal(t, 44*600*time.Second, tr.Estimate)
	assert.Equal(t, alice, tr.OnTurn)
	assert.Equal(t, bob, tr.Waiting)

	f.blocks.Set(243)
	_, err = f.ledger.ClaimTimeout(f.ctx, bob, g.ID)
	assert.ErrorIs(t, err, game.ErrTimeoutNotReached)

	f.blocks.Set(244)
	_, err = f.ledger.ClaimTimeout(f.ctx, alice, g.ID)
	assert.ErrorIs(t, err, game.ErrCannotClaim, "the player on turn cannot claim")
	_, err = f.ledger.ClaimTimeout(f.ctx, carol, g.ID)
	assert.ErrorIs(t, err, game.ErrNotParticipant)

	g, err = f.ledger.ClaimTimeout(f.ctx, bob, g.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusForfeited, g.Status)
	require.NotNil(t, g.Winner)
	assert.Equal(t, bob, *g.Winner)
	assert.Equal(t, game.OutcomeForfeit, f.rec.last().Outcome)

	tr, err = f.ledger.TimeRemaining(f.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusForfeited, tr.Status)
	assert.False(t, tr.CanForfeit)

	amount, err := f.ledger.ClaimReward(f.ctx, bob, g.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(190), amount)
}

func TestCancelWaitingGame(t *testing.T) {
	f := newFixture(t)

	g, err := f.ledger.CreateGame(f.ctx, alice, 100, 0, 3)
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.CancelGame(f.ctx, bob, g.ID), game.ErrNotGameCreator)
	require.NoError(t, f.ledger.CancelGame(f.ctx, alice, g.ID))
	assert.Equal(t, game.EventGameCancelled, f.rec.last().Type)

	_, err = f.ledger.Game(f.ctx, g.ID)
	assert.ErrorIs(t, err, game.ErrGameNotFound)

	amount, err := f.ledger.ClaimReward(f.ctx, alice, g.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), amount)

	next, err := f.ledger.CreateGame(f.ctx, alice, 100, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next.ID, "cancelled ids are not reused")

	latest, ok, err := f.ledger.LatestGameID(f.ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), latest)

	_, err = f.ledger.JoinGame(f.ctx, bob, next.ID, 1, 100)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ledger.CancelGame(f.ctx, alice, next.ID), game.ErrGameNotOpen)
}

func TestCellReads(t *testing.T) {
	f := newFixture(t)
	g := f.start(t, engine.SizeThree, 8, 0)

	m, err := f.ledger.Cell(f.ctx, g.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, engine.PlayerOne, m)
	m, err = f.ledger.Cell(f.ctx, g.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, engine.PlayerTwo, m)
	m, err = f.ledger.Cell(f.ctx, g.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, engine.Empty, m)

	_, err = f.ledger.Cell(f.ctx, g.ID, 9)
	assert.ErrorIs(t, err, engine.ErrInvalidMove)
}

func TestRegisterPlayer(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.RegisterPlayer(f.ctx, "0xdave", "alice")
	assert.ErrorIs(t, err, game.ErrUsernameTaken)
	_, err = f.ledger.RegisterPlayer(f.ctx, "0xdave", "")
	assert.ErrorIs(t, err, game.ErrInvalidUsername)

	p, err := f.ledger.RegisterPlayer(f.ctx, alice, "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alicia", p.Username)
	assert.Equal(t, game.InitialRating, p.Rating)
	assert.Equal(t, game.EventPlayerRegistered, f.rec.last().Type)
}

func TestAdminSettings(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.SetMoveTimeout(f.ctx, alice, 50)
	assert.ErrorIs(t, err, game.ErrNotAdmin)
	_, err = f.ledger.SetMoveTimeout(f.ctx, admin, 5)
	assert.ErrorIs(t, err, game.ErrInvalidTimeout)
	_, err = f.ledger.SetPlatformFee(f.ctx, admin, 1001)
	assert.ErrorIs(t, err, game.ErrInvalidFee)

	s, err := f.ledger.SetMoveTimeout(f.ctx, admin, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), s.MoveTimeoutBlocks)
	assert.Equal(t, uint64(500), s.PlatformFeeBps)

	g := f.start(t, engine.SizeThree, 0, 4)

	_, err = f.ledger.SetPaused(f.ctx, admin, true)
	require.NoError(t, err)
	_, err = f.ledger.CreateGame(f.ctx, alice, 100, 0, 3)
	assert.ErrorIs(t, err, game.ErrPaused)
	_, err = f.ledger.Play(f.ctx, alice, g.ID, 1)
	assert.ErrorIs(t, err, game.ErrPaused)

	f.blocks.Advance(10)
	_, err = f.ledger.ClaimTimeout(f.ctx, bob, g.ID)
	require.NoError(t, err, "forfeit stays open while paused")

	s, err = f.ledger.SetPaused(f.ctx, admin, false)
	require.NoError(t, err)
	assert.False(t, s.Paused)
	_, err = f.ledger.CreateGame(f.ctx, alice, 100, 0, 3)
	assert.NoError(t, err)
}

func TestEventsFollowCommitOrder(t *testing.T) {
	f := newFixture(t)
	f.start(t, engine.SizeThree, 0, 4)

	assert.Equal(t, []game.EventType{
		game.EventPlayerRegistered,
		game.EventPlayerRegistered,
		game.EventPlayerRegistered,
		game.EventGameCreated,
		game.EventGameJoined,
		game.EventMoveMade,
	}, f.rec.types())
}
