package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
)

// YahooURL is the default Yahoo Finance API root.
const YahooURL = "https://query1.finance.yahoo.com"

// YFinance serves quotes and daily history from the Yahoo Finance API.
type YFinance struct {
	baseURL string
	client  *transport.Client
}

// NewYFinance creates a Yahoo Finance source. An empty baseURL selects
// YahooURL.
func NewYFinance(baseURL string, client *transport.Client) *YFinance {
	if baseURL == "" {
		baseURL = YahooURL
	}
	return &YFinance{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// --- Yahoo Finance API types ---

type yfQuoteResponse struct {
	QuoteResponse struct {
		Result []yfQuoteResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"quoteResponse"`
}

type yfQuoteResult struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	FullExchangeName           string  `json:"fullExchangeName"`
	Exchange                   string  `json:"exchange"`
	MarketState                string  `json:"marketState"`
	Currency                   string  `json:"currency"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	RegularMarketTime          int64   `json:"regularMarketTime"`
	PreMarketPrice             float64 `json:"preMarketPrice"`
	PreMarketChange            float64 `json:"preMarketChange"`
	PreMarketChangePercent     float64 `json:"preMarketChangePercent"`
	PreMarketTime              int64   `json:"preMarketTime"`
	PostMarketPrice            float64 `json:"postMarketPrice"`
	PostMarketChange           float64 `json:"postMarketChange"`
	PostMarketChangePercent    float64 `json:"postMarketChangePercent"`
	PostMarketTime             int64   `json:"postMarketTime"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// Quotes returns current snapshots for symbols in one batched call.
func (y *YFinance) Quotes(ctx context.Context, symbols []string) (map[string]*models.Snapshot, error) {
	if len(symbols) == 0 {
		return map[string]*models.Snapshot{}, nil
	}
	body, err := y.client.Call(ctx, transport.Request{
		URL:    y.baseURL + "/v7/finance/quote",
		Params: map[string]string{"symbols": strings.Join(symbols, ",")},
	})
	if err != nil {
		return nil, err
	}

	var resp yfQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, pipeline.ShapeError("parse yfinance quote: %v", err)
	}
	if e := resp.QuoteResponse.Error; e != nil {
		return nil, pipeline.TransportError("yfinance quote error: "+e.Description, nil)
	}

	out := make(map[string]*models.Snapshot, len(resp.QuoteResponse.Result))
	for _, r := range resp.QuoteResponse.Result {
		s := toSnapshot(r)
		out[s.Symbol] = s
	}
	return out, nil
}

// History returns daily bars between from and to, newest first.
func (y *YFinance) History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	body, err := y.client.Call(ctx, transport.Request{
		URL: y.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		Params: map[string]string{
			"period1":  fmt.Sprint(from.Unix()),
			"period2":  fmt.Sprint(to.AddDate(0, 0, 1).Unix()),
			"interval": "1d",
		},
	})
	var httpErr *transport.ErrHTTP
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return nil, pipeline.TransportError(symbol+": "+err.Error(), ErrTickerNotFound)
	}
	if err != nil {
		return nil, err
	}

	var resp yfChartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, pipeline.ShapeError("parse yfinance chart: %v", err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, pipeline.TransportError(fmt.Sprintf("yfinance chart %s: %s", symbol, e.Description), ErrTickerNotFound)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, pipeline.TransportError(symbol, ErrTickerNotFound)
	}

	bars := parseYFCandles(resp.Chart.Result[0])
	slices.Reverse(bars)
	return bars, nil
}

// --- Helpers ---

func toSnapshot(r yfQuoteResult) *models.Snapshot {
	s := &models.Snapshot{
		Symbol:      strings.ToUpper(r.Symbol),
		Name:        coalesce(r.LongName, r.ShortName),
		Exchange:    coalesce(r.FullExchangeName, r.Exchange),
		MarketState: r.MarketState,
		Currency:    r.Currency,
		Price: models.Price{
			Value: r.RegularMarketPrice,
			High:  r.RegularMarketDayHigh,
			Low:   r.RegularMarketDayLow,
		},
		Change:        r.RegularMarketChange,
		ChangePct:     r.RegularMarketChangePercent,
		Volume:        r.RegularMarketVolume,
		LastTradeTime: unix(r.RegularMarketTime),
	}
	if r.PreMarketPrice != 0 {
		s.Pre = &models.Session{
			Value:         r.PreMarketPrice,
			Change:        r.PreMarketChange,
			ChangePct:     r.PreMarketChangePercent,
			LastTradeTime: unix(r.PreMarketTime),
		}
	}
	if r.PostMarketPrice != 0 {
		s.Post = &models.Session{
			Value:         r.PostMarketPrice,
			Change:        r.PostMarketChange,
			ChangePct:     r.PostMarketChangePercent,
			LastTradeTime: unix(r.PostMarketTime),
		}
	}
	return s
}

func unix(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

// parseYFCandles returns bars in provider order (oldest first). Days with
// no close are skipped.
func parseYFCandles(result yfChartResult) []models.Bar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		b := models.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			b.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			b.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			b.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		if i < len(adjCloses) && adjCloses[i] != nil {
			b.AdjClose = *adjCloses[i]
		}
		bars = append(bars, b)
	}
	return bars
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
