package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/textnorm"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
)

// --- request ---

func requestHTTP(c *transport.Client) pipeline.RequestFunc[[]byte] {
	return func(ctx context.Context, cfg pipeline.Config, query string) ([]byte, error) {
		text, err := input(ctx, c, cfg, query)
		if err != nil {
			return nil, err
		}
		req, err := transport.CreateRequest(cfg, text)
		if err != nil {
			return nil, err
		}
		return c.Call(ctx, req)
	}
}

func requestKeyword(c *transport.Client) pipeline.RequestFunc[[]byte] {
	return func(ctx context.Context, cfg pipeline.Config, query string) ([]byte, error) {
		text, err := input(ctx, c, cfg, query)
		if err != nil {
			return nil, err
		}
		return fmt.Appendf(nil, `{"results":%g}`, ScoreText(text)), nil
	}
}

// input returns the text to score. An http(s) URL is fetched and its page
// normalised to text first.
func input(ctx context.Context, c *transport.Client, cfg pipeline.Config, query string) (string, error) {
	q := strings.TrimSpace(query)
	if !isURL(q) {
		return query, nil
	}
	if c == nil {
		return "", pipeline.ConfigError("cannot fetch %q: no http client", q)
	}
	page, err := c.Fetch(ctx, q, nil)
	if err != nil {
		return "", err
	}
	return textnorm.Normalize(page, textnorm.Options{Full: true, Selector: cfg.Selector}), nil
}

// --- normalize ---

// Normalize reads the score from the path named by cfg.Results["value"],
// else from "results", "data" or the payload itself. The score must be a
// number in [0,1].
func Normalize(_ context.Context, cfg pipeline.Config, raw []byte) (models.SentimentResult, error) {
	if !gjson.ValidBytes(raw) {
		return models.SentimentResult{}, pipeline.ShapeError("response is not JSON")
	}
	root := gjson.ParseBytes(raw)

	var v gjson.Result
	if p := cfg.Results["value"]; p != "" {
		v = root.Get(p)
	} else {
		switch {
		case root.Get("results").Exists():
			v = root.Get("results")
		case root.Get("data").Exists():
			v = root.Get("data")
		default:
			v = root
		}
	}
	if v.Type != gjson.Number {
		return models.SentimentResult{}, pipeline.ShapeError("sentiment value %s is not a number", clip(v.Raw))
	}
	f := v.Float()
	if f < 0 || f > 1 {
		return models.SentimentResult{}, pipeline.ShapeError("sentiment value %g is outside [0,1]", f)
	}
	return Result(f), nil
}

func isURL(s string) bool {
	return (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) && !strings.ContainsAny(s, " \n\t")
}

func clip(s string) string {
	if s == "" {
		return "(missing)"
	}
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}
