package datasource

import (
	"context"
	"time"

	"github.com/seenimoa/stocksense/internal/search"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// SearchPages is how many result pages SearchNews reads per symbol.
const SearchPages = 2

// SearchNews sources company news from a web search provider.
type SearchNews struct {
	searcher search.Searcher
	pages    int
}

// NewSearchNews creates a search-backed news source.
func NewSearchNews(s search.Searcher) *SearchNews {
	return &SearchNews{searcher: s, pages: SearchPages}
}

// CompanyNews implements NewsSource. The date window is not sent to the
// provider; results are in provider relevance order.
func (s *SearchNews) CompanyNews(ctx context.Context, symbol string, _, _ time.Time) ([]models.Document, error) {
	var docs []models.Document
	seen := make(map[string]bool)
	for page := 0; page < s.pages; page++ {
		resp, err := s.searcher.Search(ctx, &search.Request{
			Query: symbol + " stock",
			Start: search.PageStart(page),
			Num:   search.PageSize,
			News:  true,
		})
		if err != nil {
			return nil, err
		}
		for _, r := range resp.Items {
			if r.Link == "" || seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			docs = append(docs, FromResult(r))
		}
		if len(resp.Items) < search.PageSize {
			break
		}
	}
	return docs, nil
}

// FromResult converts a search hit into a document.
func FromResult(r search.Result) models.Document {
	guid := r.Link
	if r.CacheID != "" {
		guid = "search:" + r.CacheID
	}
	display := r.DisplayLink
	if display == "" {
		display = utils.HostOf(r.Link)
	}
	return models.Document{
		GUID:        guid,
		Date:        utils.ReformatDate(r.Date),
		Link:        r.Link,
		Title:       r.Title,
		Summary:     r.Snippet,
		DisplayLink: display,
	}
}
