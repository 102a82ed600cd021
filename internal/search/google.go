package search

import (
	"context"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
)

// GoogleURL is the Custom Search JSON API endpoint.
const GoogleURL = "https://www.googleapis.com/customsearch/v1"

// Google is a Custom Search JSON API client.
type Google struct {
	baseURL string
	key     string
	cx      string
	tc      *transport.Client
}

var _ Searcher = (*Google)(nil)

// NewGoogle creates a client for the given API key and engine id. An empty
// baseURL selects GoogleURL.
func NewGoogle(key, cx, baseURL string, tc *transport.Client) *Google {
	if baseURL == "" {
		baseURL = GoogleURL
	}
	return &Google{baseURL: baseURL, key: key, cx: cx, tc: tc}
}

// Search implements Searcher.
func (g *Google) Search(ctx context.Context, req *Request) (*Response, error) {
	if g.key == "" || g.cx == "" {
		return nil, pipeline.ConfigError("google search requires key and cx")
	}
	start := req.Start
	if start < 1 {
		start = 1
	}
	num := req.Num
	if num <= 0 {
		num = PageSize
	}
	params := map[string]string{
		"q":     req.Query,
		"key":   g.key,
		"cx":    g.cx,
		"start": strconv.Itoa(start),
		"num":   strconv.Itoa(num),
	}
	optional := map[string]string{
		"lr":           req.Language,
		"siteSearch":   req.Site,
		"dateRestrict": req.DateRestrict,
		"exactTerms":   req.ExactTerms,
		"excludeTerms": req.ExcludeTerms,
		"orTerms":      req.OrTerms,
		"sort":         req.Sort,
	}
	for k, v := range optional {
		if v != "" {
			params[k] = v
		}
	}

	body, err := g.tc.Call(ctx, transport.Request{URL: g.baseURL, Params: params})
	if err != nil {
		return nil, err
	}

	resp := &Response{Search: req.Query}
	gjson.GetBytes(body, "items").ForEach(func(_, item gjson.Result) bool {
		resp.Items = append(resp.Items, Result{
			Link:        item.Get("link").String(),
			Title:       item.Get("title").String(),
			Snippet:     item.Get("snippet").String(),
			DisplayLink: item.Get("displayLink").String(),
			CacheID:     item.Get("cacheId").String(),
			Date:        publishedTime(item),
		})
		return true
	})
	return resp, nil
}

func publishedTime(item gjson.Result) string {
	for _, path := range []string{
		"pagemap.metatags.0.article:published_time",
		"pagemap.metatags.0.og:updated_time",
		"pagemap.newsarticle.0.datepublished",
	} {
		if v := item.Get(path); v.Exists() {
			return v.String()
		}
	}
	return ""
}
