package aggregate

import (
	"fmt"

	"github.com/seenimoa/stocksense/internal/config"
	"github.com/seenimoa/stocksense/internal/datasource"
	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/news"
	"github.com/seenimoa/stocksense/internal/search"
	"github.com/seenimoa/stocksense/internal/sentiment"
	"github.com/seenimoa/stocksense/internal/stocks"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// NewFromConfig wires every collaborator described by cfg.
func NewFromConfig(cfg *config.Config) (*Aggregator, error) {
	tc := transport.New(cfg.HTTP.Timeout,
		transport.WithRateLimit(cfg.HTTP.RateLimit, cfg.HTTP.Burst),
		transport.WithUserAgent(cfg.HTTP.UserAgent),
	)

	searcher, err := search.New(cfg.Search, tc)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}

	feeds := datasource.NewRSS(cfg.News.Feeds, tc.HTTP())
	companyNews, err := companyNewsSource(cfg.Finance, searcher, feeds, tc)
	if err != nil {
		return nil, err
	}
	yahoo := datasource.NewYFinance(cfg.Finance.YahooURL, tc)
	market := datasource.NewAggregator(yahoo, yahoo, companyNews, cfg.Stocks.Limit())
	clock := utils.SystemClock{}

	newsSvc := news.NewService(news.NewRegistry(news.Deps{
		Client:   tc,
		Searcher: searcher,
		Feeds:    feeds,
	}), cfg.News)
	stocksSvc := stocks.NewService(stocks.NewRegistry(stocks.Deps{
		Market:   market,
		Searcher: searcher,
		Client:   tc,
		Clock:    clock,
	}), cfg.Stocks)
	sentimentSvc := sentiment.NewService(sentiment.NewRegistry(tc), cfg.Sentiment)

	return New(newsSvc, stocksSvc, sentimentSvc, clock), nil
}

// companyNewsSource picks the per-symbol news source. The rss source
// keyword-matches the configured news feeds.
func companyNewsSource(cfg config.FinanceConfig, s search.Searcher, feeds *datasource.RSS, tc *transport.Client) (datasource.NewsSource, error) {
	switch cfg.CompanyNews {
	case "", "finnhub":
		if cfg.FinnhubKey == "" {
			logger.For("aggregate").Warn("finnhub key not set, stock records will carry no company news")
			return datasource.NoNews{}, nil
		}
		return datasource.NewFinnhub(cfg.FinnhubKey, cfg.FinnhubURL, tc.HTTP()), nil
	case "search":
		return datasource.NewSearchNews(s), nil
	case "rss":
		return feeds, nil
	case "none":
		return datasource.NoNews{}, nil
	default:
		return nil, fmt.Errorf("unknown company news source: %s", cfg.CompanyNews)
	}
}
