// Package search defines the web search collaborator used for news and
// per-symbol company news.
package search

import "context"

// PageSize is the number of results per page.
const PageSize = 10

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request is a provider-neutral search query.
type Request struct {
	Query        string
	Start        int // 1-based result offset
	Num          int
	Language     string
	Site         string
	DateRestrict string
	ExactTerms   string
	ExcludeTerms string
	OrTerms      string
	Sort         string
	News         bool
}

// PageStart returns the Start offset of a 0-based page.
func PageStart(page int) int {
	return page*PageSize + 1
}

// Response holds the results for one query.
type Response struct {
	Search string   `json:"search"`
	Items  []Result `json:"items"`
}

// Result is a single search hit.
type Result struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink,omitempty"`
	Date        string `json:"date,omitempty"`
	CacheID     string `json:"cacheId,omitempty"`
}
