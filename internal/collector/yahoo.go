package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"TradeSentinel/internal/model"
)

const (
	yahooChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=%s&range=%s"
	yahooSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary/%s?modules=summaryDetail,financialData,defaultKeyStatistics,assetProfile,calendarEvents"
)

// YahooProvider implements Provider using the Yahoo Finance public API.
type YahooProvider struct {
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	chartURL  string
	summURL   string
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(proxyURL string, timeout time.Duration) *YahooProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooProvider{
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"VIX":    "^VIX",
			"SPX":    "^GSPC",
			"SPX500": "^GSPC",
		},
		chartURL: yahooChartURL,
		summURL:  yahooSummaryURL,
	}
}

func (y *YahooProvider) Name() string { return "yahoo" }

func (y *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := y.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice  float64  `json:"regularMarketPrice"`
				ChartPreviousClose  float64  `json:"chartPreviousClose"`
				PreviousClose       float64  `json:"previousClose"`
				RegularMarketVolume *float64 `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func deref(v []*float64, i int) float64 {
	if i >= len(v) || v[i] == nil {
		return 0
	}
	return *v[i]
}

func (y *YahooProvider) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.Client.Do(req)
	if err != nil {
		return fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("yahoo: status %d, body: %.200s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

func (y *YahooProvider) fetchChart(ctx context.Context, symbol, interval, rng string) (*yahooChart, error) {
	var chart yahooChart
	u := fmt.Sprintf(y.chartURL, url.PathEscape(y.yahooSymbol(symbol)), interval, rng)
	if err := y.get(ctx, u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrUnavailable)
	}
	return &chart, nil
}

// FetchCandles picks the smallest Yahoo range covering days and trims to the requested count.
func (y *YahooProvider) FetchCandles(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	rng := "2y"
	switch {
	case days <= 20:
		rng = "1mo"
	case days <= 60:
		rng = "3mo"
	case days <= 120:
		rng = "6mo"
	case days <= 250:
		rng = "1y"
	}
	chart, err := y.fetchChart(ctx, symbol, "1d", rng)
	if err != nil {
		return nil, err
	}
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: no bars: %w", symbol, ErrUnavailable)
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := deref(quote.Open, i), deref(quote.High, i), deref(quote.Low, i), deref(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: deref(quote.Volume, i),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// FetchQuote reads the chart metadata of a one-day request.
func (y *YahooProvider) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	chart, err := y.fetchChart(ctx, symbol, "1d", "5d")
	if err != nil {
		return nil, err
	}
	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("yahoo %s: no price: %w", symbol, ErrUnavailable)
	}
	prev := meta.PreviousClose
	if prev <= 0 {
		prev = meta.ChartPreviousClose
	}
	q := &model.Quote{
		Symbol:    symbol,
		Price:     meta.RegularMarketPrice,
		Volume:    meta.RegularMarketVolume,
		FetchedAt: time.Now().UTC(),
	}
	if prev > 0 {
		q.Change = q.Price - prev
		q.ChangePercent = q.Change / prev * 100
	}
	return q, nil
}

type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE    yahooValue `json:"trailingPE"`
				DividendYield yahooValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				PriceToBook yahooValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ReturnOnEquity yahooValue `json:"returnOnEquity"`
				ProfitMargins  yahooValue `json:"profitMargins"`
				DebtToEquity   yahooValue `json:"debtToEquity"`
				CurrentRatio   yahooValue `json:"currentRatio"`
			} `json:"financialData"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			CalendarEvents struct {
				Earnings struct {
					EarningsDate []yahooValue `json:"earningsDate"`
				} `json:"earnings"`
			} `json:"calendarEvents"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchFundamentals maps quoteSummary modules onto Fundamentals. Yahoo reports debt/equity in
// percent; it is converted to a plain ratio.
func (y *YahooProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	var sum yahooSummary
	if err := y.get(ctx, fmt.Sprintf(y.summURL, url.PathEscape(y.yahooSymbol(symbol))), &sum); err != nil {
		return nil, err
	}
	if sum.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", sum.QuoteSummary.Error.Description)
	}
	if len(sum.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: no fundamentals: %w", symbol, ErrUnavailable)
	}
	r := sum.QuoteSummary.Result[0]
	f := &model.Fundamentals{
		PERatio:       r.SummaryDetail.TrailingPE.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
		PBRatio:       r.DefaultKeyStatistics.PriceToBook.Raw,
		ROE:           r.FinancialData.ReturnOnEquity.Raw,
		ProfitMargin:  r.FinancialData.ProfitMargins.Raw,
		CurrentRatio:  r.FinancialData.CurrentRatio.Raw,
		Sector:        r.AssetProfile.Sector,
	}
	if de := r.FinancialData.DebtToEquity.Raw; de != nil {
		f.DebtToEquity = model.Float(*de / 100)
	}
	for _, d := range r.CalendarEvents.Earnings.EarningsDate {
		if d.Raw != nil {
			t := time.Unix(int64(*d.Raw), 0).UTC()
			f.EarningsDate = &t
			break
		}
	}
	return f, nil
}
