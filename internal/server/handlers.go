package server

import (
	"fmt"
	"net/http"
	"strconv"

	"stackstactoe/internal/game"

	"github.com/gorilla/mux"
)

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid game id", errBadRequest)
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, key)
	}
	return n, nil
}

type registerRequest struct {
	Username string `json:"username"`
}

func (s *Server) registerPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.ledger.RegisterPlayer(r.Context(), callerFromContext(r.Context()), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPlayerView(p))
}

func (s *Server) getPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Player(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPlayerView(p))
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	players, err := s.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]playerView, len(players))
	for i := range players {
		out[i] = newPlayerView(&players[i])
	}
	writeJSON(w, http.StatusOK, out)
}

type createGameRequest struct {
	BetAmount uint64 `json:"betAmount"`
	MoveIndex *int   `json:"moveIndex"`
	BoardSize int    `json:"boardSize"`
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MoveIndex == nil {
		writeError(w, fmt.Errorf("%w: moveIndex is required", errBadRequest))
		return
	}
	g, err := s.ledger.CreateGame(r.Context(), callerFromContext(r.Context()), req.BetAmount, *req.MoveIndex, req.BoardSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newGameView(g))
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	games, err := s.ledger.Games(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]gameView, len(games))
	for i, g := range games {
		out[i] = newGameView(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) latestGame(w http.ResponseWriter, r *http.Request) {
	id, ok, err := s.ledger.LatestGameID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, game.ErrGameNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"gameId": id})
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := s.ledger.Game(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (s *Server) getCell(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, fmt.Errorf("%w: invalid cell index", errBadRequest))
		return
	}
	mark, err := s.ledger.Cell(r.Context(), id, index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cellView{GameID: id, Index: index, Mark: int(mark), Symbol: mark.String()})
}

func (s *Server) listMoves(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	moves, err := s.ledger.Moves(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]moveView, len(moves))
	for i, m := range moves {
		out[i] = moveView{Seq: m.Seq, Player: m.Player, Position: m.Position, Mark: m.Mark.String(), Block: m.Block}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) timeRemaining(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tr, err := s.ledger.TimeRemaining(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimeRemainingView(tr))
}

type joinRequest struct {
	MoveIndex *int   `json:"moveIndex"`
	Stake     uint64 `json:"stake"`
}

func (s *Server) joinGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req joinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MoveIndex == nil {
		writeError(w, fmt.Errorf("%w: moveIndex is required", errBadRequest))
		return
	}
	g, err := s.ledger.JoinGame(r.Context(), callerFromContext(r.Context()), id, *req.MoveIndex, req.Stake)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

type moveRequest struct {
	MoveIndex *int `json:"moveIndex"`
}

func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req moveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MoveIndex == nil {
		writeError(w, fmt.Errorf("%w: moveIndex is required", errBadRequest))
		return
	}
	g, err := s.ledger.Play(r.Context(), callerFromContext(r.Context()), id, *req.MoveIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (s *Server) forfeit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	g, err := s.ledger.ClaimTimeout(r.Context(), callerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameView(g))
}

func (s *Server) cancelGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.ledger.CancelGame(r.Context(), callerFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"gameId": id, "cancelled": true})
}

func (s *Server) claimReward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := s.ledger.ClaimReward(r.Context(), callerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"gameId": id, "amount": amount})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.Settings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsView(st))
}

type settingsRequest struct {
	MoveTimeoutBlocks *uint64 `json:"moveTimeoutBlocks"`
	PlatformFeeBps    *uint64 `json:"platformFeeBps"`
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.MoveTimeoutBlocks == nil && req.PlatformFeeBps == nil {
		writeError(w, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}
	caller := callerFromContext(r.Context())

	var (
		st  *game.Settings
		err error
	)
	if req.MoveTimeoutBlocks != nil {
		if st, err = s.ledger.SetMoveTimeout(r.Context(), caller, *req.MoveTimeoutBlocks); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.PlatformFeeBps != nil {
		if st, err = s.ledger.SetPlatformFee(r.Context(), caller, *req.PlatformFeeBps); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, newSettingsView(st))
}

func (s *Server) pause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, true)
}

func (s *Server) unpause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, false)
}

func (s *Server) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	st, err := s.ledger.SetPaused(r.Context(), callerFromContext(r.Context()), paused)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsView(st))
}
