package search

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// SearXNG is a client for a SearXNG instance's JSON API.
type SearXNG struct {
	baseURL string
	tc      *transport.Client
}

var _ Searcher = (*SearXNG)(nil)

// NewSearXNG creates a client for the instance at baseURL.
func NewSearXNG(baseURL string, tc *transport.Client) *SearXNG {
	return &SearXNG{baseURL: baseURL, tc: tc}
}

// Search implements Searcher. Start is mapped onto SearXNG's 1-based pageno.
func (s *SearXNG) Search(ctx context.Context, req *Request) (*Response, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil || u.Host == "" {
		return nil, pipeline.ConfigError("invalid searxng base url %q", s.baseURL)
	}
	u.Path = "/search"

	params := map[string]string{
		"q":          req.Query,
		"format":     "json",
		"categories": "general",
		"pageno":     strconv.Itoa(pageNo(req.Start)),
	}
	if req.News {
		params["categories"] = "news"
	}
	if req.Language != "" {
		params["language"] = req.Language
	}
	if req.Site != "" {
		params["q"] = req.Query + " site:" + req.Site
	}

	body, err := s.tc.Call(ctx, transport.Request{URL: u.String(), Params: params})
	if err != nil {
		return nil, err
	}

	resp := &Response{Search: req.Query}
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		link := r.Get("url").String()
		resp.Items = append(resp.Items, Result{
			Link:        link,
			Title:       r.Get("title").String(),
			Snippet:     r.Get("content").String(),
			DisplayLink: utils.HostOf(link),
			Date:        r.Get("publishedDate").String(),
		})
		return true
	})
	if req.Num > 0 && len(resp.Items) > req.Num {
		resp.Items = resp.Items[:req.Num]
	}
	return resp, nil
}

func pageNo(start int) int {
	if start < 1 {
		return 1
	}
	return (start-1)/PageSize + 1
}
