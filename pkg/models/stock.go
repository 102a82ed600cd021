package models

import (
	"encoding/json"
	"time"
)

// NotAvailable is the sentinel rendered for values that cannot be derived,
// e.g. the day-over-day change of the oldest history entry.
const NotAvailable = "N/A"

// Bar represents a single day of historical price data.
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close,omitempty"`
	Volume   int64     `json:"volume"`
}

// Price holds the value/high/low triple of a single entry.
type Price struct {
	Value float64 `json:"value"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Adj   float64 `json:"adj,omitempty"`
}

// Change is a price movement. When Available is false it marshals every
// field as NotAvailable.
type Change struct {
	Value      float64
	Percentage float64
	Positive   bool
	Available  bool
}

// NewChange returns an available change; Positive is derived from value.
func NewChange(value, percentage float64) Change {
	return Change{
		Value:      value,
		Percentage: percentage,
		Positive:   value >= 0,
		Available:  true,
	}
}

// MarshalJSON implements json.Marshaler.
func (c Change) MarshalJSON() ([]byte, error) {
	if !c.Available {
		return json.Marshal(struct {
			Value      string `json:"value"`
			Percentage string `json:"percentage"`
			Positive   bool   `json:"positive"`
		}{NotAvailable, NotAvailable, false})
	}
	return json.Marshal(struct {
		Value      float64 `json:"value"`
		Percentage float64 `json:"percentage"`
		Positive   bool    `json:"positive"`
	}{c.Value, c.Percentage, c.Positive})
}

// Session is a pre- or post-market extended trading session.
type Session struct {
	Value         float64   `json:"value"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	LastTradeTime time.Time `json:"last_trade_time"`
}

// Snapshot represents the current quote of a symbol.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Exchange      string    `json:"exchange"`
	MarketState   string    `json:"market_state,omitempty"` // e.g. "REGULAR", "PRE", "POST", "CLOSED"
	Currency      string    `json:"currency,omitempty"`
	Price         Price     `json:"price"`
	Change        float64   `json:"change"`
	ChangePct     float64   `json:"change_pct"`
	Volume        int64     `json:"volume"`
	LastTradeTime time.Time `json:"last_trade_time"`
	Pre           *Session  `json:"pre,omitempty"`
	Post          *Session  `json:"post,omitempty"`
}

// ExtendedSession is the rendered form of a pre/post market session.
type ExtendedSession struct {
	Value         float64 `json:"value"`
	LastTradeTime string  `json:"lastTradeTime"`
	Change        Change  `json:"change"`
}

// Extended groups the extended-hours sessions of a "today" entry.
type Extended struct {
	Pre  *ExtendedSession `json:"pre,omitempty"`
	Post *ExtendedSession `json:"post,omitempty"`
}

// HistoryEntry is one day in a unified stock record.
type HistoryEntry struct {
	Date          string    `json:"date"`
	Volume        int64     `json:"volume"`
	Price         Price     `json:"price"`
	Change        Change    `json:"change"`
	LastTradeTime string    `json:"lastTradeTime"`
	Extended      *Extended `json:"extended,omitempty"`
}

// StockRecord is the merged per-symbol output combining the current snapshot,
// history and news with sentiment.
type StockRecord struct {
	Symbol      string              `json:"symbol"`
	Exchange    string              `json:"exchange,omitempty"`
	MarketState string              `json:"marketState,omitempty"`
	Values      []HistoryEntry      `json:"values"` // oldest first, "today" last
	News        []Document          `json:"news"`   // oldest first
	Sentiment   *AggregateSentiment `json:"sentiment,omitempty"`
	About       *Snapshot           `json:"about,omitempty"`
}

// StockRecords maps uppercased symbols to their unified records.
type StockRecords map[string]*StockRecord

// Symbols returns the record keys in no particular order.
func (r StockRecords) Symbols() []string {
	out := make([]string, 0, len(r))
	for s := range r {
		out = append(out, s)
	}
	return out
}
