// Package datasource provides the market data collaborators used by the
// stocks domain: current quotes, daily history and company news.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/seenimoa/stocksense/pkg/models"
)

// QuoteSource returns current snapshots keyed by uppercased symbol.
// Symbols the provider does not know are absent from the map.
type QuoteSource interface {
	Quotes(ctx context.Context, symbols []string) (map[string]*models.Snapshot, error)
}

// HistorySource returns daily bars for one symbol, newest first.
type HistorySource interface {
	History(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// NewsSource returns company news for one symbol, newest first.
type NewsSource interface {
	CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.Document, error)
}

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// NoNews is a NewsSource that always returns no articles.
type NoNews struct{}

// CompanyNews implements NewsSource.
func (NoNews) CompanyNews(context.Context, string, time.Time, time.Time) ([]models.Document, error) {
	return nil, nil
}
