// Package stocks runs the stocks pipeline: authenticate, request,
// normalize, body, then text. The request gathers quotes, history and company
// news for every symbol; normalize merges them into unified records.
package stocks

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stocksense/internal/datasource"
	"github.com/seenimoa/stocksense/internal/news"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/search"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// Domain labels stocks errors, logs and metrics.
const Domain = "stocks"

type (
	Registry  = pipeline.Registry[*datasource.Bundle, models.StockRecords]
	Pipeline  = pipeline.Pipeline[*datasource.Bundle, models.StockRecords]
	Overrides = pipeline.Overrides[*datasource.Bundle, models.StockRecords]
)

// Presets are the builtin stocks sources.
var Presets = pipeline.Presets{
	pipeline.Default: {},
}

// Deps are the collaborators used by the builtin strategies. Searcher is
// only needed by the google variant; Clock defaults to the system clock.
type Deps struct {
	Market   *datasource.Aggregator
	Searcher search.Searcher
	Client   *transport.Client
	Clock    utils.Clock
}

// NewRegistry returns a registry with every builtin stocks strategy.
func NewRegistry(d Deps) *Registry {
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	r := pipeline.NewRegistry[*datasource.Bundle, models.StockRecords](Domain, pipeline.StageBody, pipeline.StageText)
	r.RegisterRequest(pipeline.Default, request(d.Market, d.Clock))
	r.RegisterRequest(pipeline.Google, requestGoogle(d.Market, d.Searcher, d.Clock))
	r.RegisterNormalize(pipeline.Default, func(_ context.Context, _ pipeline.Config, b *datasource.Bundle) (models.StockRecords, error) {
		return Merge(b, d.Clock), nil
	})

	_ = r.RegisterTransform(pipeline.StageBody, pipeline.Default, perSymbol(func(ctx context.Context, cfg pipeline.Config, docs []models.Document) ([]models.Document, error) {
		return news.FetchBodies(ctx, d.Client, cfg, Domain, docs)
	}))
	_ = r.RegisterTransform(pipeline.StageBody, news.None, keepAll)
	_ = r.RegisterTransform(pipeline.StageText, pipeline.Default, perSymbol(news.TextSelector))
	_ = r.RegisterTransform(pipeline.StageText, news.Readability, perSymbol(news.TextReadability))
	_ = r.RegisterTransform(pipeline.StageText, news.None, keepAll)
	return r
}

// Service looks up unified stock records.
type Service struct {
	registry *Registry
	base     pipeline.Config
}

// NewService creates a stocks service.
func NewService(r *Registry, base pipeline.Config) *Service {
	return &Service{registry: r, base: base}
}

// Build resolves the pipeline for one invocation.
func (s *Service) Build(over pipeline.Config, o Overrides) (*Pipeline, error) {
	cfg, err := Presets.Apply(Domain, pipeline.Merge(s.base, over))
	if err != nil {
		return nil, err
	}
	return s.registry.Build(cfg, o)
}

// Lookup runs the stocks pipeline for a comma-separated symbol list.
func (s *Service) Lookup(ctx context.Context, query string, over pipeline.Config, o Overrides) (models.StockRecords, error) {
	p, err := s.Build(over, o)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, query)
}

// --- strategies ---

func request(m *datasource.Aggregator, clock utils.Clock) pipeline.RequestFunc[*datasource.Bundle] {
	return func(ctx context.Context, cfg pipeline.Config, query string) (*datasource.Bundle, error) {
		return fetch(ctx, m, cfg, query, clock)
	}
}

// requestGoogle sources company news from the search provider.
func requestGoogle(m *datasource.Aggregator, s search.Searcher, clock utils.Clock) pipeline.RequestFunc[*datasource.Bundle] {
	return func(ctx context.Context, cfg pipeline.Config, query string) (*datasource.Bundle, error) {
		if s == nil {
			return nil, pipeline.ConfigError("no search provider configured")
		}
		if m == nil {
			return nil, pipeline.ConfigError("no market data source configured")
		}
		return fetch(ctx, m.WithNews(datasource.NewSearchNews(s)), cfg, query, clock)
	}
}

func fetch(ctx context.Context, m *datasource.Aggregator, cfg pipeline.Config, query string, clock utils.Clock) (*datasource.Bundle, error) {
	if m == nil {
		return nil, pipeline.ConfigError("no market data source configured")
	}
	symbols := utils.ParseSymbols(query)
	if len(symbols) == 0 {
		return nil, pipeline.ConfigError("query %q names no symbols", query)
	}
	from, to, err := utils.DateWindow(clock, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, pipeline.ConfigError("%v", err)
	}
	return m.Fetch(ctx, symbols, from, to)
}

// perSymbol applies fn to every record's news, all symbols concurrently,
// and recomputes each record's aggregate sentiment.
func perSymbol(fn pipeline.TransformFunc[[]models.Document]) pipeline.TransformFunc[models.StockRecords] {
	return func(ctx context.Context, cfg pipeline.Config, recs models.StockRecords) (models.StockRecords, error) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Limit())
		for _, rec := range recs {
			g.Go(func() error {
				docs, err := fn(gctx, cfg, rec.News)
				if err != nil {
					return err
				}
				rec.News = docs
				rec.Sentiment = AggregateSentiment(docs)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return recs, nil
	}
}

func keepAll(_ context.Context, _ pipeline.Config, recs models.StockRecords) (models.StockRecords, error) {
	return recs, nil
}
