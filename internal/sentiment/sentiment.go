// Package sentiment is the optional news-sentiment boundary. Its absence never blocks a decision.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"TradeSentinel/internal/model"
)

// ErrUnavailable is returned when no sentiment exists for a symbol.
var ErrUnavailable = errors.New("sentiment unavailable")

// Provider returns a news score in [-100,100] for a symbol.
type Provider interface {
	GetSentiment(ctx context.Context, symbol string) (*model.Sentiment, error)
	Name() string
}

// Noop never has sentiment.
type Noop struct{}

func (Noop) Name() string { return "none" }

func (Noop) GetSentiment(context.Context, string) (*model.Sentiment, error) {
	return nil, ErrUnavailable
}

// Static serves fixed scores, e.g. from configuration or tests.
type Static struct {
	mu     sync.RWMutex
	scores map[string]model.Sentiment
}

func NewStatic(scores map[string]float64) *Static {
	s := &Static{scores: make(map[string]model.Sentiment, len(scores))}
	for sym, v := range scores {
		s.scores[strings.ToUpper(sym)] = model.Sentiment{Score: model.Clamp(v, -100, 100), Summary: "static"}
	}
	return s
}

func (s *Static) Name() string { return "static" }

// Set replaces the score for symbol.
func (s *Static) Set(symbol string, v model.Sentiment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.Score = model.Clamp(v.Score, -100, 100)
	s.scores[strings.ToUpper(symbol)] = v
}

func (s *Static) GetSentiment(_ context.Context, symbol string) (*model.Sentiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scores[strings.ToUpper(symbol)]
	if !ok {
		return nil, ErrUnavailable
	}
	return &v, nil
}

// HTTP queries GET {BaseURL}/sentiment?symbol=X and expects {"score":..,"summary":..}.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) GetSentiment(ctx context.Context, symbol string) (*model.Sentiment, error) {
	u := fmt.Sprintf("%s/sentiment?symbol=%s", h.BaseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sentiment fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sentiment: status %d", resp.StatusCode)
	}
	var s model.Sentiment
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("sentiment decode: %w", err)
	}
	s.Score = model.Clamp(s.Score, -100, 100)
	return &s, nil
}
