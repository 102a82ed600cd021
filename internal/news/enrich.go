package news

import (
	"context"
	"errors"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/textnorm"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
)

var errNoLink = errors.New("document has no link")

func fetchBodies(c *transport.Client) pipeline.TransformFunc[[]models.Document] {
	return func(ctx context.Context, cfg pipeline.Config, docs []models.Document) ([]models.Document, error) {
		return FetchBodies(ctx, c, cfg, Domain, docs)
	}
}

// FetchBodies downloads every document's link concurrently, bounded by
// cfg.Concurrency, with cfg.ArticleParams as query params. Documents with
// no link or a failed fetch are dropped.
func FetchBodies(ctx context.Context, c *transport.Client, cfg pipeline.Config, domain string, docs []models.Document) ([]models.Document, error) {
	params, err := transport.RenderParams(cfg.ArticleParams, cfg, "")
	if err != nil {
		return nil, err
	}
	kept, _ := pipeline.Each(ctx, pipeline.EachOptions{Domain: domain, Stage: pipeline.StageBody, Limit: cfg.Limit()}, docs,
		func(ctx context.Context, d models.Document) (models.Document, error) {
			if d.Link == "" {
				return d, errNoLink
			}
			body, err := c.Fetch(ctx, d.Link, params)
			if err != nil {
				return d, err
			}
			d.Body = body
			return d, nil
		})
	return kept, nil
}

// TextSelector replaces each body with its normalised text, scoped to
// cfg.Selector. Documents without a body are dropped; empty summaries
// are backfilled from the text.
func TextSelector(_ context.Context, cfg pipeline.Config, docs []models.Document) ([]models.Document, error) {
	opts := textnorm.Options{Full: true, Selector: cfg.Selector}
	return extract(docs, func(d models.Document) string {
		return textnorm.Normalize(d.Body, opts)
	}), nil
}

// TextReadability extracts the main article content of each body, falling
// back to the selector normaliser when no article is found.
func TextReadability(_ context.Context, cfg pipeline.Config, docs []models.Document) ([]models.Document, error) {
	opts := textnorm.Options{Full: true, Selector: cfg.Selector}
	return extract(docs, func(d models.Document) string {
		text, err := textnorm.Readable(d.Body, d.Link)
		if err != nil || text == "" {
			return textnorm.Normalize(d.Body, opts)
		}
		return textnorm.Normalize(text, textnorm.Options{})
	}), nil
}

func extract(docs []models.Document, text func(models.Document) string) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.Body == "" {
			continue
		}
		d.Body = text(d)
		if d.Summary == "" {
			d.Summary = textnorm.Summary(d.Body)
		}
		out = append(out, d)
	}
	return out
}
