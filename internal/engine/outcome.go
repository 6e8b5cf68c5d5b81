package engine

// Result classifies a board after a move.
type Result uint8

const (
	NoResult Result = iota
	Win
	Draw
)

func (r Result) String() string {
	switch r {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "none"
	}
}

// Outcome is what EvaluateOutcome reports. Mark and Line are only set for Win.
type Outcome struct {
	Result Result
	Mark   Mark
	Line   []int
}

// Finished reports whether the outcome is terminal.
func (o Outcome) Finished() bool { return o.Result != NoResult }

// direction is a (row, col) step.
type direction struct{ dr, dc int }

// Scan directions for run-based boards: right, down, down-right, down-left.
var directions = []direction{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

var (
	threeLines = classicLines(SizeThree)
	fiveLines  = runLines(SizeFive, 5)
)

// classicLines lists every full row, then every full column, then the two
// diagonals.
func classicLines(size int) [][]int {
	lines := make([][]int, 0, 2*size+2)
	for r := 0; r < size; r++ {
		line := make([]int, size)
		for c := 0; c < size; c++ {
			line[c] = r*size + c
		}
		lines = append(lines, line)
	}
	for c := 0; c < size; c++ {
		line := make([]int, size)
		for r := 0; r < size; r++ {
			line[r] = r*size + c
		}
		lines = append(lines, line)
	}
	diag := make([]int, size)
	anti := make([]int, size)
	for i := 0; i < size; i++ {
		diag[i] = i*size + i
		anti[i] = i*size + (size - 1 - i)
	}
	return append(lines, diag, anti)
}

// runLines lists every in-bounds run of length n, walking start cells in
// row-major order and trying each direction in turn.
func runLines(size, n int) [][]int {
	var lines [][]int
	for start := 0; start < size*size; start++ {
		r0, c0 := start/size, start%size
		for _, d := range directions {
			rEnd, cEnd := r0+d.dr*(n-1), c0+d.dc*(n-1)
			if rEnd < 0 || rEnd >= size || cEnd < 0 || cEnd >= size {
				continue
			}
			line := make([]int, n)
			for k := 0; k < n; k++ {
				line[k] = (r0+d.dr*k)*size + (c0 + d.dc*k)
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// Lines returns the winning lines for size in evaluation order. The returned
// slices are copies.
func Lines(size int) ([][]int, error) {
	src, err := linesFor(size)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(src))
	for i, l := range src {
		out[i] = append([]int(nil), l...)
	}
	return out, nil
}

func linesFor(size int) ([][]int, error) {
	switch size {
	case SizeThree:
		return threeLines, nil
	case SizeFive:
		return fiveLines, nil
	default:
		return nil, &MoveError{Kind: ErrInvalidBoardSize, Index: -1, Size: size}
	}
}

// EvaluateOutcome checks every line for size and returns the first one held
// entirely by a single mark. A full board without such a line is a draw.
// Wins are always checked before the draw, so a final move that completes a
// line is a win.
func EvaluateOutcome(board Board, boardSize int) (Outcome, error) {
	lines, err := linesFor(boardSize)
	if err != nil {
		return Outcome{}, err
	}
	if len(board) != boardSize*boardSize {
		return Outcome{}, &MoveError{Kind: ErrMalformedBoard, Index: -1, Size: boardSize}
	}

	for _, line := range lines {
		first := board[line[0]]
		if first == Empty {
			continue
		}
		held := true
		for _, idx := range line[1:] {
			if board[idx] != first {
				held = false
				break
			}
		}
		if held {
			return Outcome{Result: Win, Mark: first, Line: append([]int(nil), line...)}, nil
		}
	}

	if board.Full() {
		return Outcome{Result: Draw}, nil
	}
	return Outcome{Result: NoResult}, nil
}
