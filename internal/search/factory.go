package search

import (
	"fmt"

	"github.com/seenimoa/stocksense/internal/config"
	"github.com/seenimoa/stocksense/internal/transport"
)

// New creates the Searcher selected by cfg.Provider.
func New(cfg config.SearchConfig, tc *transport.Client) (Searcher, error) {
	switch cfg.Provider {
	case "", "google":
		return NewGoogle(cfg.Google.Key, cfg.Google.CX, cfg.Google.URL, tc), nil
	case "searxng":
		if cfg.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return NewSearXNG(cfg.SearXNG.BaseURL, tc), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
}
