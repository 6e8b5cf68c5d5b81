package db

import (
	"context"
	"errors"
	"strconv"

	"stackstactoe/internal/db/models"
	"stackstactoe/internal/engine"
	"stackstactoe/internal/game"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	gameCounter = "game"
	settingsID  = 1
)

// Store implements game.Store on gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) Atomic(ctx context.Context, fn func(tx game.Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) record(ctx context.Context, table, action, id string) error {
	return s.conn(ctx).Create(&models.RecordLog{TableName: table, Action: action, RecordID: id}).Error
}

func gameRecordID(id uint64) string { return strconv.FormatUint(id, 10) }

// NextGameID hands out ids from a stored counter so ids of cancelled games
// are never reused.
func (s *Store) NextGameID(ctx context.Context) (uint64, error) {
	var c models.Counter
	err := s.conn(ctx).Where("name = ?", gameCounter).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, s.conn(ctx).Create(&models.Counter{Name: gameCounter, Value: 1}).Error
	}
	if err != nil {
		return 0, err
	}
	id := c.Value
	err = s.conn(ctx).Model(&models.Counter{}).
		Where("name = ?", gameCounter).
		Update("value", id+1).Error
	return id, err
}

func (s *Store) LatestGameID(ctx context.Context) (uint64, bool, error) {
	var c models.Counter
	err := s.conn(ctx).Where("name = ?", gameCounter).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && c.Value == 0) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return c.Value - 1, true, nil
}

func toGameRow(g *game.Game) models.Game {
	return models.Game{
		ID:              g.ID,
		PlayerOne:       g.PlayerOne,
		PlayerTwo:       g.PlayerTwo,
		BetAmount:       g.BetAmount,
		BoardSize:       g.BoardSize,
		IsPlayerOneTurn: g.IsPlayerOneTurn,
		Status:          g.Status.Code(),
		Winner:          g.Winner,
		LastMoveBlock:   g.LastMoveBlock,
		CreatedBlock:    g.CreatedBlock,
		MoveCount:       g.MoveCount,
	}
}

func fromGameRow(row *models.Game) (*game.Game, error) {
	status, ok := game.StatusFromCode(row.Status, row.PlayerTwo != nil)
	if !ok {
		return nil, errors.New("unknown game status code " + strconv.Itoa(int(row.Status)))
	}
	board, err := engine.NewBoard(row.BoardSize)
	if err != nil {
		return nil, err
	}
	for _, c := range row.Cells {
		if c.Idx >= 0 && c.Idx < len(board) {
			board[c.Idx] = engine.Mark(c.Mark)
		}
	}
	return &game.Game{
		ID:              row.ID,
		PlayerOne:       row.PlayerOne,
		PlayerTwo:       row.PlayerTwo,
		BetAmount:       row.BetAmount,
		BoardSize:       row.BoardSize,
		Board:           board,
		IsPlayerOneTurn: row.IsPlayerOneTurn,
		Status:          status,
		Winner:          row.Winner,
		LastMoveBlock:   row.LastMoveBlock,
		CreatedBlock:    row.CreatedBlock,
		MoveCount:       row.MoveCount,
	}, nil
}

// saveCells inserts a row for every marked cell. Marked cells never change,
// so rows that already exist are left alone.
func (s *Store) saveCells(ctx context.Context, g *game.Game) error {
	cells := make([]models.Cell, 0, len(g.Board))
	for i, m := range g.Board {
		if m == engine.Empty {
			continue
		}
		cells = append(cells, models.Cell{GameID: g.ID, Idx: i, Mark: uint8(m)})
	}
	if len(cells) == 0 {
		return nil
	}
	return s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&cells).Error
}

func (s *Store) InsertGame(ctx context.Context, g *game.Game) error {
	row := toGameRow(g)
	if err := s.conn(ctx).Omit("Cells").Create(&row).Error; err != nil {
		return err
	}
	if err := s.saveCells(ctx, g); err != nil {
		return err
	}
	return s.record(ctx, "games", "create", gameRecordID(g.ID))
}

func (s *Store) UpdateGame(ctx context.Context, g *game.Game) error {
	row := toGameRow(g)
	res := s.conn(ctx).Model(&models.Game{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"player_two":         row.PlayerTwo,
		"is_player_one_turn": row.IsPlayerOneTurn,
		"status":             row.Status,
		"winner":             row.Winner,
		"last_move_block":    row.LastMoveBlock,
		"move_count":         row.MoveCount,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrGameNotFound
	}
	if err := s.saveCells(ctx, g); err != nil {
		return err
	}
	return s.record(ctx, "games", "update:"+g.Status.String(), gameRecordID(g.ID))
}

// attachCells fills in the marked cells of rows. Preload is not used since it
// skips parents whose key is the zero value, and game ids start at 0.
func (s *Store) attachCells(ctx context.Context, rows []models.Game) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uint64, len(rows))
	byID := make(map[uint64]*models.Game, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		byID[rows[i].ID] = &rows[i]
	}
	var cells []models.Cell
	if err := s.conn(ctx).Where("game_id IN ?", ids).Order("idx asc").Find(&cells).Error; err != nil {
		return err
	}
	for _, c := range cells {
		if row, ok := byID[c.GameID]; ok {
			row.Cells = append(row.Cells, c)
		}
	}
	return nil
}

func (s *Store) LoadGame(ctx context.Context, id uint64) (*game.Game, error) {
	var row models.Game
	err := s.conn(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	rows := []models.Game{row}
	if err := s.attachCells(ctx, rows); err != nil {
		return nil, err
	}
	return fromGameRow(&rows[0])
}

func (s *Store) DeleteGame(ctx context.Context, id uint64) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.Game{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrGameNotFound
	}
	return s.record(ctx, "games", "cancel", gameRecordID(id))
}

func (s *Store) Cell(ctx context.Context, gameID uint64, index int) (engine.Mark, error) {
	var c models.Cell
	err := s.conn(ctx).Where("game_id = ? AND idx = ?", gameID, index).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.Empty, nil
	}
	if err != nil {
		return engine.Empty, err
	}
	return engine.Mark(c.Mark), nil
}

func (s *Store) ListGames(ctx context.Context, offset, limit int) ([]*game.Game, error) {
	var rows []models.Game
	err := s.conn(ctx).Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if err := s.attachCells(ctx, rows); err != nil {
		return nil, err
	}
	out := make([]*game.Game, 0, len(rows))
	for i := range rows {
		g, err := fromGameRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) AppendMove(ctx context.Context, m game.Move) error {
	return s.conn(ctx).Create(&models.Move{
		GameID:   m.GameID,
		Seq:      m.Seq,
		Player:   m.Player,
		Position: m.Position,
		Mark:     uint8(m.Mark),
		Block:    m.Block,
	}).Error
}

func (s *Store) Moves(ctx context.Context, gameID uint64) ([]game.Move, error) {
	var rows []models.Move
	if err := s.conn(ctx).Where("game_id = ?", gameID).Order("seq asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]game.Move, len(rows))
	for i, r := range rows {
		out[i] = game.Move{
			GameID:   r.GameID,
			Seq:      r.Seq,
			Player:   r.Player,
			Position: r.Position,
			Mark:     engine.Mark(r.Mark),
			Block:    r.Block,
		}
	}
	return out, nil
}

func fromPlayerRow(r *models.Player) *game.Player {
	return &game.Player{
		Address:    r.Address,
		Username:   r.Username,
		Wins:       r.Wins,
		Losses:     r.Losses,
		Draws:      r.Draws,
		TotalGames: r.TotalGames,
		Rating:     r.Rating,
	}
}

func (s *Store) findPlayer(ctx context.Context, query string, arg string) (*game.Player, error) {
	var row models.Player
	err := s.conn(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	return fromPlayerRow(&row), nil
}

func (s *Store) LoadPlayer(ctx context.Context, address string) (*game.Player, error) {
	return s.findPlayer(ctx, "address = ?", address)
}

func (s *Store) PlayerByUsername(ctx context.Context, username string) (*game.Player, error) {
	return s.findPlayer(ctx, "username = ?", username)
}

func (s *Store) SavePlayer(ctx context.Context, p *game.Player) error {
	row := models.Player{
		Address:    p.Address,
		Username:   p.Username,
		Wins:       p.Wins,
		Losses:     p.Losses,
		Draws:      p.Draws,
		TotalGames: p.TotalGames,
		Rating:     p.Rating,
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return err
	}
	return s.record(ctx, "players", "save", p.Address)
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]game.Player, error) {
	var rows []models.Player
	err := s.conn(ctx).Order("rating desc").Order("wins desc").Order("address asc").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]game.Player, len(rows))
	for i := range rows {
		out[i] = *fromPlayerRow(&rows[i])
	}
	return out, nil
}

func (s *Store) LoadSettings(ctx context.Context) (*game.Settings, error) {
	var row models.Setting
	err := s.conn(ctx).Where("id = ?", settingsID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game.Settings{
		MoveTimeoutBlocks: row.MoveTimeoutBlocks,
		PlatformFeeBps:    row.PlatformFeeBps,
		Paused:            row.Paused,
	}, nil
}

func (s *Store) SaveSettings(ctx context.Context, st *game.Settings) error {
	row := models.Setting{
		ID:                settingsID,
		MoveTimeoutBlocks: st.MoveTimeoutBlocks,
		PlatformFeeBps:    st.PlatformFeeBps,
		Paused:            st.Paused,
	}
	if err := s.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return err
	}
	return s.record(ctx, "settings", "save", strconv.Itoa(settingsID))
}

func (s *Store) InsertPayout(ctx context.Context, p game.Payout) error {
	err := s.conn(ctx).Create(&models.Payout{
		GameID: p.GameID,
		Player: p.Player,
		Amount: p.Amount,
	}).Error
	if err != nil {
		return err
	}
	return s.record(ctx, "payouts", "create", gameRecordID(p.GameID)+":"+p.Player)
}

func (s *Store) LoadPayout(ctx context.Context, gameID uint64, player string) (*game.Payout, error) {
	var row models.Payout
	err := s.conn(ctx).Where("game_id = ? AND player = ?", gameID, player).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrNothingToClaim
	}
	if err != nil {
		return nil, err
	}
	return &game.Payout{GameID: row.GameID, Player: row.Player, Amount: row.Amount, Claimed: row.Claimed}, nil
}

func (s *Store) MarkPayoutClaimed(ctx context.Context, gameID uint64, player string) error {
	res := s.conn(ctx).Model(&models.Payout{}).
		Where("game_id = ? AND player = ?", gameID, player).
		Update("claimed", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrNothingToClaim
	}
	return s.record(ctx, "payouts", "claim", gameRecordID(gameID)+":"+player)
}
