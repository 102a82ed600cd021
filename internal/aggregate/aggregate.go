// Package aggregate fans a topic out to the news and stocks pipelines,
// attaches a sentiment score to every article and fans the results back in.
package aggregate

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/news"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/sentiment"
	"github.com/seenimoa/stocksense/internal/stocks"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// StageAttach labels per-article sentiment lookups in drop counts.
const StageAttach pipeline.Stage = "attach"

// Request is one aggregation run. An empty Symbols skips the stocks
// pipeline. The pipeline configs are merged over each service's base.
type Request struct {
	Topic     string          `json:"topic"`
	Symbols   string          `json:"symbols,omitempty"`
	News      pipeline.Config `json:"news"`
	Stocks    pipeline.Config `json:"stocks"`
	Sentiment pipeline.Config `json:"sentiment"`
}

// Dropped counts items omitted during best-effort enrichment.
type Dropped struct {
	Body      int `json:"body"`
	Sentiment int `json:"sentiment"`
}

// Result is the fan-in of one run.
type Result struct {
	Topic     string              `json:"topic"`
	News      []models.Document   `json:"news"`
	Stocks    models.StockRecords `json:"stocks"`
	Dropped   Dropped             `json:"dropped"`
	FetchedAt time.Time           `json:"fetchedAt"`
}

// Aggregator coordinates the three domain services.
type Aggregator struct {
	news      *news.Service
	stocks    *stocks.Service
	sentiment *sentiment.Service
	clock     utils.Clock
	log       *logrus.Entry
}

// New creates an Aggregator. A nil clock means the system clock.
func New(n *news.Service, s *stocks.Service, sent *sentiment.Service, clock utils.Clock) *Aggregator {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Aggregator{
		news:      n,
		stocks:    s,
		sentiment: sent,
		clock:     clock,
		log:       logger.For("aggregate"),
	}
}

// News returns the news service.
func (a *Aggregator) News() *news.Service { return a.news }

// Stocks returns the stocks service.
func (a *Aggregator) Stocks() *stocks.Service { return a.stocks }

// Sentiment returns the sentiment service.
func (a *Aggregator) Sentiment() *sentiment.Service { return a.sentiment }

// SearchNews runs the news pipeline alone.
func (a *Aggregator) SearchNews(ctx context.Context, query string, cfg pipeline.Config) ([]models.Document, error) {
	return a.news.Search(ctx, query, cfg, news.Overrides{})
}

// LookupStocks runs the stocks pipeline alone.
func (a *Aggregator) LookupStocks(ctx context.Context, symbols string, cfg pipeline.Config) (models.StockRecords, error) {
	return a.stocks.Lookup(ctx, symbols, cfg, stocks.Overrides{})
}

// Score runs the sentiment pipeline alone.
func (a *Aggregator) Score(ctx context.Context, text string, cfg pipeline.Config) (models.SentimentResult, error) {
	return a.sentiment.Score(ctx, text, cfg, sentiment.Overrides{})
}

// Run executes req. Any pipeline failure fails the run; a single article's
// sentiment failure only leaves that article out.
func (a *Aggregator) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, pipeline.ConfigError("topic is required")
	}
	scorer, err := a.sentiment.Build(req.Sentiment, sentiment.Overrides{})
	if err != nil {
		return nil, err
	}

	tally := pipeline.NewTally()
	ctx = pipeline.WithTally(ctx, tally)
	log := a.log.WithField("topic", req.Topic)
	start := time.Now()

	res := &Result{Topic: req.Topic, News: []models.Document{}, Stocks: models.StockRecords{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := a.news.Search(gctx, req.Topic, req.News, news.Overrides{})
		if err != nil {
			return err
		}
		res.News = attach(gctx, scorer, req.Sentiment, docs)
		return nil
	})
	if strings.TrimSpace(req.Symbols) != "" {
		g.Go(func() error {
			recs, err := a.stocks.Lookup(gctx, req.Symbols, req.Stocks, stocks.Overrides{})
			if err != nil {
				return err
			}
			res.Stocks = attachRecords(gctx, scorer, req.Sentiment, recs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("aggregation failed")
		return nil, err
	}

	res.Dropped = Dropped{
		Body:      tally.Get(news.Domain, pipeline.StageBody) + tally.Get(stocks.Domain, pipeline.StageBody),
		Sentiment: tally.Get(sentiment.Domain, StageAttach),
	}
	res.FetchedAt = a.clock.Now()
	log.WithFields(logrus.Fields{
		"articles":          len(res.News),
		"symbols":           len(res.Stocks),
		"dropped_body":      res.Dropped.Body,
		"dropped_sentiment": res.Dropped.Sentiment,
		"dropped_total":     tally.Total(),
		"duration":          time.Since(start).Round(time.Millisecond),
	}).Info("aggregation complete")
	return res, nil
}

// attach scores every document concurrently. Documents whose lookup fails
// are omitted.
func attach(ctx context.Context, scorer *sentiment.Pipeline, cfg pipeline.Config, docs []models.Document) []models.Document {
	opts := pipeline.EachOptions{Domain: sentiment.Domain, Stage: StageAttach, Limit: cfg.Limit()}
	out, _ := pipeline.Each(ctx, opts, docs, func(ctx context.Context, d models.Document) (models.Document, error) {
		r, err := scorer.Run(ctx, scoringText(d))
		if err != nil {
			return d, err
		}
		r.Text = ""
		d.Sentiment = &r
		return d, nil
	})
	if out == nil {
		out = []models.Document{}
	}
	return out
}

// attachRecords scores each symbol's news, all symbols concurrently, and
// recomputes the aggregate sentiment.
func attachRecords(ctx context.Context, scorer *sentiment.Pipeline, cfg pipeline.Config, recs models.StockRecords) models.StockRecords {
	var g errgroup.Group
	g.SetLimit(cfg.Limit())
	for _, rec := range recs {
		g.Go(func() error {
			rec.News = attach(ctx, scorer, cfg, rec.News)
			rec.Sentiment = stocks.AggregateSentiment(rec.News)
			return nil
		})
	}
	_ = g.Wait()
	return recs
}

// scoringText is the article body when the text stage produced one,
// otherwise the headline and summary.
func scoringText(d models.Document) string {
	if d.Body != "" {
		return d.Body
	}
	return strings.TrimSpace(d.Title + ". " + d.Summary)
}
