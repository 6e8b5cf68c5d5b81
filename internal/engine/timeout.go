package engine

import (
	"fmt"
	"math"
	"time"
)

// DefaultBlockInterval is the assumed average time between blocks. Durations
// derived from it are display estimates only; forfeiture is always decided
// on block heights.
const DefaultBlockInterval = 600 * time.Second

// ComputeTimeRemaining returns how many blocks are left before the player on
// turn may be forfeited: max(0, lastMoveBlock+moveTimeoutBlocks-currentBlock).
func ComputeTimeRemaining(lastMoveBlock, moveTimeoutBlocks, currentBlock uint64) uint64 {
	deadline := lastMoveBlock + moveTimeoutBlocks
	if deadline < lastMoveBlock {
		deadline = math.MaxUint64
	}
	if currentBlock >= deadline {
		return 0
	}
	return deadline - currentBlock
}

// CanForfeit reports whether currentBlock has reached the timeout boundary.
func CanForfeit(lastMoveBlock, moveTimeoutBlocks, currentBlock uint64) bool {
	return ComputeTimeRemaining(lastMoveBlock, moveTimeoutBlocks, currentBlock) == 0
}

// EstimateDuration converts a block count to an approximate wall-clock
// duration. A non-positive interval falls back to DefaultBlockInterval.
func EstimateDuration(blocks uint64, interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = DefaultBlockInterval
	}
	if blocks > uint64(math.MaxInt64/int64(interval)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(blocks) * interval
}

// FormatRemaining renders d as HH:MM:SS. Hours are not wrapped.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
