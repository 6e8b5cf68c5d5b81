package chain

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// BlockSource yields the current ledger block height.
type BlockSource interface {
	CurrentBlock(ctx context.Context) (uint64, error)
}

// ClockSource derives block height from wall-clock time at a fixed interval.
type ClockSource struct {
	clock       clock.Clock
	genesis     time.Time
	interval    time.Duration
	startHeight uint64
}

func NewClockSource(c clock.Clock, genesis time.Time, interval time.Duration, startHeight uint64) *ClockSource {
	if c == nil {
		c = clock.New()
	}
	if interval <= 0 {
		interval = 600 * time.Second
	}
	return &ClockSource{clock: c, genesis: genesis, interval: interval, startHeight: startHeight}
}

func (s *ClockSource) CurrentBlock(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	elapsed := s.clock.Now().Sub(s.genesis)
	if elapsed < 0 {
		return s.startHeight, nil
	}
	return s.startHeight + uint64(elapsed/s.interval), nil
}

// Interval is the configured block interval.
func (s *ClockSource) Interval() time.Duration { return s.interval }

// Manual is a BlockSource whose height is set by hand.
type Manual struct {
	mu     sync.Mutex
	height uint64
}

func NewManual(height uint64) *Manual {
	return &Manual{height: height}
}

func (m *Manual) CurrentBlock(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.height, nil
}

func (m *Manual) Set(height uint64) {
	m.mu.Lock()
	m.height = height
	m.mu.Unlock()
}

func (m *Manual) Advance(blocks uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.height += blocks
	return m.height
}
