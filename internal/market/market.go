package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ReturnStats carries percentage price returns over three lookback horizons.
type ReturnStats struct {
	OneDay   decimal.Decimal
	ThreeDay decimal.Decimal
	OneWeek  decimal.Decimal
}

// ZeroReturns is the degraded stand-in used when a symbol cannot be resolved.
func ZeroReturns() ReturnStats {
	return ReturnStats{}
}

// IsZero reports whether all three returns are zero.
func (r ReturnStats) IsZero() bool {
	return r.OneDay.IsZero() && r.ThreeDay.IsZero() && r.OneWeek.IsZero()
}

// HistoryFetcher retrieves recent daily candles for a symbol and computes
// its price returns.
type HistoryFetcher interface {
	FetchReturns(ctx context.Context, symbol string, lookbackDays int) (ReturnStats, error)
}

// ErrInsufficientData indicates the provider returned too few candles to
// compute even a one-day return.
var ErrInsufficientData = errors.New("market: insufficient candle data")

// UpstreamError wraps a provider-side failure (non-success envelope, HTTP
// error, or transport failure).
type UpstreamError struct {
	Status int
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("market: upstream error (%d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("market: upstream error: %s", e.Reason)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
