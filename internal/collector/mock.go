package collector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"TradeSentinel/internal/model"
)

// MockProvider returns controllable fixed data for development and testing. Symbols without an
// explicit entry get a generated gently rising series around Price.
type MockProvider struct {
	mu           sync.RWMutex
	Price        float64
	Bars         map[string][]model.OHLCV
	Quotes       map[string]*model.Quote
	Fundamentals map[string]*model.Fundamentals
	Fail         map[string]bool
}

// NewMockProvider creates a mock that generates bars around price.
func NewMockProvider(price float64) *MockProvider {
	return &MockProvider{
		Price:        price,
		Bars:         make(map[string][]model.OHLCV),
		Quotes:       make(map[string]*model.Quote),
		Fundamentals: make(map[string]*model.Fundamentals),
		Fail:         make(map[string]bool),
	}
}

func (m *MockProvider) Name() string { return "mock" }

// SetPrice overrides the quote for symbol.
func (m *MockProvider) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Quotes[symbol] = &model.Quote{Symbol: symbol, Price: price, FetchedAt: time.Now().UTC()}
}

func (m *MockProvider) FetchCandles(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail[symbol] {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrUnavailable)
	}
	if bars, ok := m.Bars[symbol]; ok {
		if len(bars) > days {
			bars = bars[len(bars)-days:]
		}
		return bars, nil
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	m.mu.RLock()
	if m.Fail[symbol] {
		m.mu.RUnlock()
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrUnavailable)
	}
	if q, ok := m.Quotes[symbol]; ok {
		m.mu.RUnlock()
		cp := *q
		return &cp, nil
	}
	m.mu.RUnlock()

	bars, err := m.FetchCandles(ctx, symbol, 2)
	if err != nil || len(bars) == 0 {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrUnavailable)
	}
	last := bars[len(bars)-1]
	q := &model.Quote{Symbol: symbol, Price: last.Close, FetchedAt: time.Now().UTC()}
	if len(bars) > 1 && bars[0].Close > 0 {
		q.Change = last.Close - bars[0].Close
		q.ChangePercent = q.Change / bars[0].Close * 100
	}
	return q, nil
}

func (m *MockProvider) FetchFundamentals(_ context.Context, symbol string) (*model.Fundamentals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail[symbol] {
		return nil, fmt.Errorf("mock %s: %w", symbol, ErrUnavailable)
	}
	if f, ok := m.Fundamentals[symbol]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, fmt.Errorf("mock %s: no fundamentals: %w", symbol, ErrUnavailable)
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	day := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001 + 0.01*math.Sin(float64(i)/3))
		bars[i] = model.OHLCV{
			Time:   day.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
