package collector

import (
	"context"
	"errors"

	"TradeSentinel/internal/model"
)

// ErrUnavailable marks data the provider could not supply. Callers degrade instead of failing.
var ErrUnavailable = errors.New("market data unavailable")

// Provider is the market-data boundary. Each call may fail independently.
type Provider interface {
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
	// FetchCandles returns up to days daily bars in chronological order.
	FetchCandles(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
	Name() string
}
