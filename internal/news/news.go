// Package news runs the news pipeline: authenticate, request, normalize,
// filter, body, then text.
package news

import (
	"context"

	"github.com/seenimoa/stocksense/internal/datasource"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/search"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
)

// Domain labels news errors, logs and metrics.
const Domain = "news"

// Payload is the raw result of a news request: a JSON document plus an
// optional field mapping that replaces cfg.Results.
type Payload struct {
	Body    []byte
	Results map[string]string
}

type (
	Registry  = pipeline.Registry[Payload, []models.Document]
	Pipeline  = pipeline.Pipeline[Payload, []models.Document]
	Overrides = pipeline.Overrides[Payload, []models.Document]
)

// Deps are the collaborators used by the builtin strategies. Searcher and
// Feeds may be nil when the google and rss strategies are not used.
type Deps struct {
	Client   *transport.Client
	Searcher search.Searcher
	Feeds    *datasource.RSS
}

// NewRegistry returns a registry with every builtin news strategy.
func NewRegistry(d Deps) *Registry {
	r := pipeline.NewRegistry[Payload, []models.Document](Domain, pipeline.StageFilter, pipeline.StageBody, pipeline.StageText)
	r.RegisterRequest(pipeline.Default, requestHTTP(d.Client))
	r.RegisterRequest(pipeline.Google, requestGoogle(d.Searcher))
	r.RegisterRequest("rss", requestRSS(d.Feeds))
	r.RegisterNormalize(pipeline.Default, Normalize)

	_ = r.RegisterTransform(pipeline.StageFilter, pipeline.Default, FilterExcluded)
	_ = r.RegisterTransform(pipeline.StageFilter, None, keepAll)
	_ = r.RegisterTransform(pipeline.StageBody, pipeline.Default, fetchBodies(d.Client))
	_ = r.RegisterTransform(pipeline.StageBody, None, keepAll)
	_ = r.RegisterTransform(pipeline.StageText, pipeline.Default, TextSelector)
	_ = r.RegisterTransform(pipeline.StageText, Readability, TextReadability)
	_ = r.RegisterTransform(pipeline.StageText, None, keepAll)
	return r
}

// Strategy names specific to the news domain.
const (
	None        = "none"
	Readability = "readability"
)

// Service runs news searches against one base configuration.
type Service struct {
	registry *Registry
	base     pipeline.Config
}

// NewService creates a news service.
func NewService(r *Registry, base pipeline.Config) *Service {
	return &Service{registry: r, base: base}
}

// Build resolves the pipeline for one invocation: the preset named by the
// effective source, merged under base, merged under over.
func (s *Service) Build(over pipeline.Config, o Overrides) (*Pipeline, error) {
	cfg, err := Presets.Apply(Domain, pipeline.Merge(s.base, over))
	if err != nil {
		return nil, err
	}
	return s.registry.Build(cfg, o)
}

// Search runs the news pipeline for query.
func (s *Service) Search(ctx context.Context, query string, over pipeline.Config, o Overrides) ([]models.Document, error) {
	p, err := s.Build(over, o)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, query)
}

func keepAll(_ context.Context, _ pipeline.Config, docs []models.Document) ([]models.Document, error) {
	return docs, nil
}
