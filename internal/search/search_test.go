package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stocksense/internal/config"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
)

const googleBody = `{
  "kind": "customsearch#search",
  "items": [
    {"kind": "customsearch#result", "title": "Apple earnings", "link": "https://www.reuters.com/apple",
     "displayLink": "www.reuters.com", "snippet": "Apple beat...", "cacheId": "abc123",
     "pagemap": {"metatags": [{"article:published_time": "2026-10-13T10:00:00Z"}]}},
    {"kind": "customsearch#result", "title": "No date", "link": "https://ft.com/x", "snippet": "s"}
  ]
}`

func TestGoogleSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "AAPL", q.Get("q"))
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		assert.Equal(t, "11", q.Get("start"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, "lang_en", q.Get("lr"))
		assert.False(t, q.Has("sort"), "empty options must be omitted")
		w.Write([]byte(googleBody))
	}))
	defer srv.Close()

	g := NewGoogle("k", "cx", srv.URL, transport.New(time.Second))
	resp, err := g.Search(context.Background(), &Request{Query: "AAPL", Start: PageStart(1), Language: "lang_en"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "AAPL", resp.Search)
	assert.Equal(t, "abc123", resp.Items[0].CacheID)
	assert.Equal(t, "2026-10-13T10:00:00Z", resp.Items[0].Date)
	assert.Equal(t, "Apple beat...", resp.Items[0].Snippet)
	assert.Empty(t, resp.Items[1].Date)
}

func TestGoogleRequiresCredentials(t *testing.T) {
	_, err := NewGoogle("", "", "", transport.New(time.Second)).Search(context.Background(), &Request{Query: "x"})
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestGoogleUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Daily Limit Exceeded"}}`))
	}))
	defer srv.Close()

	_, err := NewGoogle("k", "cx", srv.URL, transport.New(time.Second)).Search(context.Background(), &Request{Query: "x"})
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindTransport))
	assert.Contains(t, err.Error(), "Daily Limit Exceeded")
}

func TestSearXNGSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "news", q.Get("categories"))
		assert.Equal(t, "2", q.Get("pageno"))
		w.Write([]byte(`{"query":"tsla","results":[
			{"title":"Tesla deliveries","url":"https://news.example.com/tsla","content":"Record","publishedDate":"2026-10-01T08:00:00"},
			{"title":"Second","url":"https://b.example.com/2","content":"More"}]}`))
	}))
	defer srv.Close()

	s := NewSearXNG(srv.URL, transport.New(time.Second))
	resp, err := s.Search(context.Background(), &Request{Query: "tsla", Start: 11, News: true, Num: 1})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "news.example.com", resp.Items[0].DisplayLink)
	assert.Equal(t, "Record", resp.Items[0].Snippet)
}

func TestPageStart(t *testing.T) {
	assert.Equal(t, 1, PageStart(0))
	assert.Equal(t, 11, PageStart(1))
	assert.Equal(t, 1, pageNo(1))
	assert.Equal(t, 2, pageNo(11))
}

func TestFactory(t *testing.T) {
	tc := transport.New(time.Second)

	s, err := New(config.SearchConfig{Provider: "google"}, tc)
	require.NoError(t, err)
	assert.IsType(t, &Google{}, s)

	s, err = New(config.SearchConfig{Provider: "searxng", SearXNG: config.SearXNGConfig{BaseURL: "http://localhost:8888"}}, tc)
	require.NoError(t, err)
	assert.IsType(t, &SearXNG{}, s)

	_, err = New(config.SearchConfig{Provider: "searxng"}, tc)
	assert.Error(t, err)

	_, err = New(config.SearchConfig{Provider: "bing"}, tc)
	assert.Error(t, err)
}
