package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeSentinel/internal/engine"
	"TradeSentinel/internal/ledger"
	"TradeSentinel/internal/model"
)

func testNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "")
	n.apiBase = url
	n.backoff = time.Millisecond
	return n
}

func TestSendPostsHTMLMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<b>hi</b>", got["text"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := testNotifier(srv.URL)
	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(-100)
	err := n.SendWithRetry(context.Background(), "x", 1)
	assert.ErrorContains(t, err, "all 2 retries exhausted")
}

func TestPollingDispatchesCommands(t *testing.T) {
	replies := make(chan string, 1)
	var polled atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polled.Add(1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /portfolio "}}]}`))
				return
			}
			assert.Equal(t, "8", r.URL.Query().Get("offset"))
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			replies <- body["text"]
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go testNotifier(srv.URL).StartPolling(ctx, func(cmd string) string { return "got " + cmd })

	select {
	case reply := <-replies:
		assert.Equal(t, "got /portfolio", reply)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
}

func TestFormatters(t *testing.T) {
	pnl := -12.5
	trades := []model.Trade{
		{Symbol: "AAPL", Action: model.ActionSell, Shares: 2.5, Price: 95, Amount: 237.5, Reason: "stop-loss", Score: 40, RealizedPnL: &pnl},
		{Symbol: "AAPL", Action: model.ActionBuy, Shares: 2.5, Price: 100, Amount: 250, Reason: "buy-signal", Score: 61},
	}
	msg := FormatTrades(model.Personality{Name: "Balanced"}, trades)
	assert.Contains(t, msg, "<b>Balanced</b> | 2 trade(s)")
	assert.Contains(t, msg, "🔴 Sell AAPL 2.5 @ $95.00 ($237.50)")
	assert.Contains(t, msg, "realized P&L: -12.50")

	pf := ledger.Portfolio{Name: "Balanced", Cash: 750, TotalValue: 1010, StartingCapital: 1000, PnLPct: 1,
		Positions: []ledger.PositionView{{Position: model.Position{Symbol: "MSFT", Shares: 1, AverageCost: 250}, Price: 260, UnrealizedPnLPct: 4}}}
	out := FormatPortfolio(pf)
	assert.Contains(t, out, "Total value: $1010.00 (+1.00%)")
	assert.Contains(t, out, "MSFT 1 @ $250.00 → $260.00 (+4.0%)")
	assert.Contains(t, FormatPortfolio(ledger.Portfolio{Name: "Empty"}), "No open positions")

	assert.Contains(t, FormatRecentTrades("Balanced", nil), "No trades yet")

	status := FormatStatus([]ledger.Portfolio{pf}, []*engine.Evaluation{{Symbol: "MSFT",
		Decision: model.Decision{CompositeScore: 66, CompositeSignal: model.SignalBuy, Confidence: model.ConfidenceHigh, Regime: model.RegimeTrend}}}, time.Time{})
	assert.Contains(t, status, "• Balanced: $1010.00 (+1.00%), 1 position(s)")
	assert.Contains(t, status, "MSFT 66 Buy (High, Trend)")
}
