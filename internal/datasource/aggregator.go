package datasource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/pkg/models"
)

// Bundle is the raw per-symbol market data gathered for one run.
type Bundle struct {
	Symbols    []string
	Current    map[string]*models.Snapshot
	Historical map[string][]models.Bar
	News       map[string][]models.Document
}

// NewBundle returns a bundle with empty maps for symbols.
func NewBundle(symbols []string) *Bundle {
	return &Bundle{
		Symbols:    symbols,
		Current:    make(map[string]*models.Snapshot),
		Historical: make(map[string][]models.Bar),
		News:       make(map[string][]models.Document),
	}
}

// Aggregator fetches quotes, history and company news concurrently.
type Aggregator struct {
	quotes  QuoteSource
	history HistorySource
	news    NewsSource
	limit   int
	log     *logrus.Entry
}

// NewAggregator creates an aggregator. A nil news source disables company
// news. limit bounds the per-symbol fan-out.
func NewAggregator(quotes QuoteSource, history HistorySource, news NewsSource, limit int) *Aggregator {
	if news == nil {
		news = NoNews{}
	}
	if limit <= 0 {
		limit = pipeline.DefaultConcurrency
	}
	return &Aggregator{
		quotes:  quotes,
		history: history,
		news:    news,
		limit:   limit,
		log:     logger.For("datasource"),
	}
}

// WithNews returns a copy of a that sources company news from news.
func (a *Aggregator) WithNews(news NewsSource) *Aggregator {
	cp := *a
	cp.news = news
	return &cp
}

// Fetch gathers market data for symbols between from and to. Quote and
// history failures fail the call, except unknown tickers which are left
// out of the bundle. Company news failures are logged and skipped.
func (a *Aggregator) Fetch(ctx context.Context, symbols []string, from, to time.Time) (*Bundle, error) {
	b := NewBundle(symbols)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	// 1. Current quotes, one batched call.
	g.Go(func() error {
		current, err := a.quotes.Quotes(gctx, symbols)
		if err != nil {
			return err
		}
		mu.Lock()
		b.Current = current
		mu.Unlock()
		return nil
	})

	// 2. Daily history per symbol.
	g.Go(func() error {
		h, hctx := errgroup.WithContext(gctx)
		h.SetLimit(a.limit)
		for _, sym := range symbols {
			h.Go(func() error {
				bars, err := a.history.History(hctx, sym, from, to)
				if errors.Is(err, ErrTickerNotFound) {
					a.log.WithField("symbol", sym).Warn("no history for symbol")
					return nil
				}
				if err != nil {
					return err
				}
				mu.Lock()
				b.Historical[sym] = bars
				mu.Unlock()
				return nil
			})
		}
		return h.Wait()
	})

	// 3. Company news per symbol (non-fatal).
	g.Go(func() error {
		var n errgroup.Group
		n.SetLimit(a.limit)
		for _, sym := range symbols {
			n.Go(func() error {
				docs, err := a.news.CompanyNews(gctx, sym, from, to)
				if err != nil {
					a.log.WithField("symbol", sym).Warnf("company news: %v", err)
					return nil
				}
				mu.Lock()
				b.News[sym] = docs
				mu.Unlock()
				return nil
			})
		}
		return n.Wait()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}
