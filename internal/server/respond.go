package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"stackstactoe/internal/engine"
	"stackstactoe/internal/game"
)

var (
	errBadRequest        = errors.New("malformed request")
	errNotFound          = errors.New("no such route")
	errEventsUnavailable = errors.New("live events are not available")
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	kind   string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{engine.ErrInvalidBoardSize, http.StatusBadRequest, "invalid_board_size"},
	{engine.ErrInvalidMove, http.StatusBadRequest, "invalid_move"},
	{engine.ErrMalformedBoard, http.StatusBadRequest, "malformed_board"},
	{engine.ErrCellOccupied, http.StatusConflict, "cell_occupied"},
	{game.ErrMissingCaller, http.StatusUnauthorized, "missing_caller"},
	{game.ErrGameNotFound, http.StatusNotFound, "game_not_found"},
	{game.ErrNotRegistered, http.StatusNotFound, "not_registered"},
	{game.ErrNothingToClaim, http.StatusNotFound, "nothing_to_claim"},
	{game.ErrInvalidBet, http.StatusBadRequest, "invalid_bet"},
	{game.ErrInvalidUsername, http.StatusBadRequest, "invalid_username"},
	{game.ErrInvalidTimeout, http.StatusBadRequest, "invalid_timeout"},
	{game.ErrInvalidFee, http.StatusBadRequest, "invalid_fee"},
	{game.ErrNotParticipant, http.StatusForbidden, "not_participant"},
	{game.ErrNotGameCreator, http.StatusForbidden, "not_game_creator"},
	{game.ErrCannotClaim, http.StatusForbidden, "cannot_claim"},
	{game.ErrNotAdmin, http.StatusForbidden, "not_admin"},
	{game.ErrSelfPlay, http.StatusConflict, "self_play"},
	{game.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{game.ErrGameNotOpen, http.StatusConflict, "game_not_open"},
	{game.ErrGameNotActive, http.StatusConflict, "game_not_active"},
	{game.ErrGameFinished, http.StatusConflict, "game_finished"},
	{game.ErrTimeoutNotReached, http.StatusConflict, "timeout_not_reached"},
	{game.ErrUsernameTaken, http.StatusConflict, "username_taken"},
	{game.ErrAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{game.ErrPaused, http.StatusServiceUnavailable, "paused"},
	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{errNotFound, http.StatusNotFound, "not_found"},
	{errEventsUnavailable, http.StatusServiceUnavailable, "events_unavailable"},
}

func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, kind := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Internal error: %v", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: kind, Message: msg})
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
