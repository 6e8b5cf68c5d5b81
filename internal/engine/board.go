// Package engine holds the tic-tac-toe rules shared by the ledger and every
// display layer: move legality, win/draw detection and timeout arithmetic.
//
// Everything here is pure. Functions take a caller-owned board snapshot and
// return a verdict; nothing is logged, retried or cached.
package engine

// Mark is the content of a single cell.
type Mark uint8

const (
	Empty Mark = iota
	PlayerOne
	PlayerTwo
)

func (m Mark) String() string {
	switch m {
	case Empty:
		return "empty"
	case PlayerOne:
		return "X"
	case PlayerTwo:
		return "O"
	default:
		return "invalid"
	}
}

// Opponent returns the other player's mark. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case PlayerOne:
		return PlayerTwo
	case PlayerTwo:
		return PlayerOne
	default:
		return Empty
	}
}

// Board is a row-major grid of size*size cells.
type Board []Mark

// Supported board sizes.
const (
	SizeThree = 3
	SizeFive  = 5
)

// ValidSize reports whether size is one of the supported board sizes.
func ValidSize(size int) bool {
	return size == SizeThree || size == SizeFive
}

// NewBoard returns an all-empty board for size.
func NewBoard(size int) (Board, error) {
	if !ValidSize(size) {
		return nil, &MoveError{Kind: ErrInvalidBoardSize, Index: -1, Size: size}
	}
	return make(Board, size*size), nil
}

// Full reports whether no cell is empty.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Count returns how many cells hold m.
func (b Board) Count(m Mark) int {
	n := 0
	for _, c := range b {
		if c == m {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of b.
func (b Board) Clone() Board {
	out := make(Board, len(b))
	copy(out, b)
	return out
}

// String renders the board as one digit per cell ('0' empty, '1', '2'),
// row-major, which is also the compact form used in logs and events.
func (b Board) String() string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = byte('0' + c)
	}
	return string(out)
}

// ValidateMove checks that cellIndex is a legal target on board. It never
// mutates the board. Turn order and player identity are not its concern.
func ValidateMove(board Board, boardSize, cellIndex int) error {
	if !ValidSize(boardSize) {
		return &MoveError{Kind: ErrInvalidBoardSize, Index: cellIndex, Size: boardSize}
	}
	if len(board) != boardSize*boardSize {
		return &MoveError{Kind: ErrMalformedBoard, Index: cellIndex, Size: boardSize}
	}
	if cellIndex < 0 || cellIndex >= boardSize*boardSize {
		return &MoveError{Kind: ErrInvalidMove, Index: cellIndex, Size: boardSize}
	}
	if board[cellIndex] != Empty {
		return &MoveError{Kind: ErrCellOccupied, Index: cellIndex, Size: boardSize}
	}
	return nil
}

// ApplyMove returns a copy of board with cellIndex set to mark. Callers must
// run ValidateMove first; an out of range index panics like any slice access.
func ApplyMove(board Board, cellIndex int, mark Mark) Board {
	next := board.Clone()
	next[cellIndex] = mark
	return next
}
