package game

import "errors"

// Ledger-level rejections. Board rule violations come from the engine
// package and pass through unchanged.
var (
	ErrGameNotFound      = errors.New("game not found")
	ErrNotRegistered     = errors.New("player is not registered")
	ErrSelfPlay          = errors.New("cannot play against yourself")
	ErrInvalidBet        = errors.New("invalid bet amount")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrNotParticipant    = errors.New("player is not part of this game")
	ErrGameNotOpen       = errors.New("game is not waiting for an opponent")
	ErrGameNotActive     = errors.New("game is not active")
	ErrGameFinished      = errors.New("game has already finished")
	ErrNotGameCreator    = errors.New("only the creator can cancel this game")
	ErrTimeoutNotReached = errors.New("move timeout has not elapsed")
	ErrCannotClaim       = errors.New("only the waiting player can claim a timeout")
	ErrUsernameTaken     = errors.New("username is already taken")
	ErrInvalidUsername   = errors.New("username must be 1-32 printable ASCII characters")
	ErrNothingToClaim    = errors.New("no reward to claim")
	ErrAlreadyClaimed    = errors.New("reward already claimed")
	ErrNotAdmin          = errors.New("caller is not the admin")
	ErrPaused            = errors.New("game contract is paused")
	ErrInvalidTimeout    = errors.New("move timeout must be at least 10 blocks")
	ErrInvalidFee        = errors.New("platform fee must be at most 1000 basis points")
	ErrMissingCaller     = errors.New("caller address is required")
)
