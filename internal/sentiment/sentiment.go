// Package sentiment runs the sentiment pipeline: authenticate, request,
// then normalize. The result is a score in [0,1] with a derived polarity and
// confidence.
package sentiment

import (
	"context"
	"math"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// Domain labels sentiment errors, logs and metrics.
const Domain = "sentiment"

// Keyword names the offline request strategy.
const Keyword = "keyword"

type (
	Registry  = pipeline.Registry[[]byte, models.SentimentResult]
	Pipeline  = pipeline.Pipeline[[]byte, models.SentimentResult]
	Overrides = pipeline.Overrides[[]byte, models.SentimentResult]
)

// Polarity is neutral for 0.45 ≤ v ≤ 0.55, else positive above 0.5 and
// negative below.
func Polarity(v float64) models.Polarity {
	switch {
	case v >= 0.45 && v <= 0.55:
		return models.PolarityNeutral
	case v > 0.5:
		return models.PolarityPositive
	default:
		return models.PolarityNegative
	}
}

// Confidence is max(|1-v|, |v|) as a percentage with 2 decimals.
func Confidence(v float64) string {
	return utils.Fixed2(math.Max(math.Abs(1-v), math.Abs(v)) * 100)
}

// Result builds a SentimentResult for value v.
func Result(v float64) models.SentimentResult {
	return models.SentimentResult{Value: v, Polarity: Polarity(v), Confidence: Confidence(v)}
}

// NewRegistry returns a registry with the builtin sentiment strategies.
func NewRegistry(c *transport.Client) *Registry {
	r := pipeline.NewRegistry[[]byte, models.SentimentResult](Domain)
	r.RegisterRequest(pipeline.Default, requestHTTP(c))
	r.RegisterRequest(Keyword, requestKeyword(c))
	r.RegisterNormalize(pipeline.Default, Normalize)
	return r
}

// Service scores text or article URLs.
type Service struct {
	registry *Registry
	base     pipeline.Config
}

// NewService creates a sentiment service.
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

// Score runs the sentiment pipeline for query, a text or an http(s) URL.
func (s *Service) Score(ctx context.Context, query string, over pipeline.Config, o Overrides) (models.SentimentResult, error) {
	p, err := s.Build(over, o)
	if err != nil {
		return models.SentimentResult{}, err
	}
	res, err := p.Run(ctx, query)
	if err != nil {
		return models.SentimentResult{}, err
	}
	res.Text = query
	return res, nil
}
