package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrAcquireTimeout indicates no permit became available within the bound.
var ErrAcquireTimeout = errors.New("ratelimit: permit acquisition timed out")

// Budget is a process-wide pool of send permits capped at a per-second
// ceiling. Permits are only consumed by Acquire; they are restored
// exclusively by the replenisher, so the pool admits at most `capacity`
// sends per replenishment interval regardless of how fast sends complete.
type Budget struct {
	capacity int
	permits  chan struct{}
	logger   zerolog.Logger
}

// NewBudget constructs a budget with the given per-second ceiling, starting
// full.
func NewBudget(capacity int, logger zerolog.Logger) *Budget {
	if capacity <= 0 {
		panic("ratelimit: capacity must be positive")
	}

	permits := make(chan struct{}, capacity)
	for i := 0; i < capacity; i++ {
		permits <- struct{}{}
	}

	return &Budget{
		capacity: capacity,
		permits:  permits,
		logger:   logger.With().Str("component", "rate_budget").Logger(),
	}
}

// Capacity returns the permit ceiling.
func (b *Budget) Capacity() int {
	return b.capacity
}

// Available returns the number of currently unconsumed permits.
func (b *Budget) Available() int {
	return len(b.permits)
}

// Acquire consumes one permit, blocking until one is available, the timeout
// elapses (ErrAcquireTimeout), or ctx is cancelled.
func (b *Budget) Acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case <-b.permits:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-b.permits:
		return nil
	case <-timer.C:
		return ErrAcquireTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire consumes a permit without blocking.
func (b *Budget) TryAcquire() bool {
	select {
	case <-b.permits:
		return true
	default:
		return false
	}
}

// Replenish tops the pool back up toward the ceiling and reports how many
// permits were restored.
func (b *Budget) Replenish() int {
	restored := 0
	for {
		select {
		case b.permits <- struct{}{}:
			restored++
		default:
			return restored
		}
	}
}

// RunReplenisher restores permits once per interval until ctx is cancelled.
// It is meant to run for the whole process lifetime.
func (b *Budget) RunReplenisher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if restored := b.Replenish(); restored > 0 {
				b.logger.Debug().Int("restored", restored).Msg("replenished send permits")
			}
		}
	}
}
