package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/mjhoover1/Intelligent-Investing/internal/config"
	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/pkg/indicator"
)

// YahooProvider fetches quotes and daily history from the Yahoo Finance
// chart API and derives RSI from the daily closes.
type YahooProvider struct {
	client          *http.Client
	baseURL         string
	rsiPeriod       int
	indicatorEngine string
	historyDays     int
}

// NewYahooProvider creates a Yahoo Finance provider
func NewYahooProvider(cfg config.MarketConfig) (*YahooProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("yahoo provider requires a base URL")
	}
	return &YahooProvider{
		client:          &http.Client{Timeout: cfg.FetchTimeout},
		baseURL:         cfg.BaseURL,
		rsiPeriod:       cfg.RSIPeriod,
		indicatorEngine: cfg.IndicatorEngine,
		historyDays:     cfg.HistoryDays,
	}, nil
}

// Name returns the provider name
func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
// Price arrays use pointers because holidays come back as JSON nulls.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSnapshot fetches the latest price and computes RSI from daily bars
func (p *YahooProvider) FetchSnapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	ticker := NormalizeSymbol(symbol)

	price, bars, err := p.fetchChart(ctx, ticker, rangeForDays(p.historyDays))
	if err != nil {
		return nil, err
	}

	snapshot := &models.MarketSnapshot{
		Symbol:    symbol,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}

	if rsi, ok := p.computeRSI(bars); ok {
		snapshot.RSI14 = &rsi
	}

	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("yahoo returned an invalid snapshot for %s: %w", symbol, err)
	}
	return snapshot, nil
}

func (p *YahooProvider) fetchChart(ctx context.Context, ticker, rng string) (float64, []*models.DailyBar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		p.baseURL, url.PathEscape(ticker), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	// Yahoo rejects requests without a browser-like agent
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return 0, nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return 0, nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return 0, nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return 0, nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]*models.DailyBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // skip null bars (holidays etc.)
		}
		bar := &models.DailyBar{
			Symbol: ticker,
			Date:   time.Unix(ts, 0).UTC(),
			Close:  *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return 0, nil, fmt.Errorf("%w: %s", ErrNoData, ticker)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	price := result.Meta.RegularMarketPrice
	if price <= 0 {
		price = bars[len(bars)-1].Close
	}
	return price, bars, nil
}

// computeRSI runs the configured calculator over the daily closes.
// Returns false when history is too short, which the evaluator treats
// as unevaluable rather than an error.
func (p *YahooProvider) computeRSI(bars []*models.DailyBar) (float64, bool) {
	calc, err := indicator.NewRSICalculator(p.indicatorEngine, p.rsiPeriod)
	if err != nil {
		return 0, false
	}
	for _, bar := range bars {
		if _, err := calc.Update(bar); err != nil {
			return 0, false
		}
	}
	if !calc.IsReady() {
		return 0, false
	}
	value, err := calc.Value()
	if err != nil {
		return 0, false
	}
	return value, true
}

// rangeForDays maps a day count onto the coarse ranges the chart API accepts
func rangeForDays(days int) string {
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}
