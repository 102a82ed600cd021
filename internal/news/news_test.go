package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/search"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
)

// guardianServer serves a Guardian-style search response with n results
// whose article pages fail for the indices in failing.
func guardianServer(t *testing.T, n int, failing map[int]bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			assert.Equal(t, "apple", r.URL.Query().Get("q"))
			assert.Equal(t, "guardian-key", r.URL.Query().Get("api-key"))
			var items []string
			for i := range n {
				items = append(items, fmt.Sprintf(
					`{"id":"business/%d","webPublicationDate":"2026-10-13T09:30:00Z","webUrl":"%s/a/%d","webTitle":"Story %d","fields":{"trailText":"Trail %d"}}`,
					i, srv.URL, i, i, i))
			}
			fmt.Fprintf(w, `{"response":{"status":"ok","results":[%s]}}`, strings.Join(items, ","))
			return
		}
		var i int
		fmt.Sscanf(r.URL.Path, "/a/%d", &i)
		if failing[i] {
			http.Error(w, "upstream broke", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `<html><body><nav><a href="/">Home</a></nav><p>Story %d   body ,text...</p></body></html>`, i)
	}))
	return srv
}

func newService(d Deps) *Service {
	if d.Client == nil {
		d.Client = transport.New(time.Second)
	}
	return NewService(NewRegistry(d), pipeline.Config{})
}

func guardianConfig(srv *httptest.Server) pipeline.Config {
	return pipeline.Config{Source: "guardian", URL: srv.URL + "/search", APIKey: "guardian-key"}
}

func TestGuardianPipeline(t *testing.T) {
	srv := guardianServer(t, 2, nil)
	defer srv.Close()

	docs, err := newService(Deps{}).Search(context.Background(), "apple", guardianConfig(srv), Overrides{})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	d := docs[0]
	assert.Equal(t, "business/0", d.GUID)
	assert.Equal(t, "Story 0", d.Title)
	assert.Equal(t, "Trail 0", d.Summary)
	assert.Equal(t, "Tue, Oct 13, 2026 9:30 AM", d.Date)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), d.DisplayLink)
	assert.Equal(t, "Story 0 body,text.", d.Body)
}

func TestBodyFailuresAreDropped(t *testing.T) {
	srv := guardianServer(t, 10, map[int]bool{1: true, 4: true, 8: true})
	defer srv.Close()

	tally := pipeline.NewTally()
	ctx := pipeline.WithTally(context.Background(), tally)
	docs, err := newService(Deps{}).Search(ctx, "apple", guardianConfig(srv), Overrides{})
	require.NoError(t, err)
	require.Len(t, docs, 7)
	assert.Equal(t, 3, tally.Get(Domain, pipeline.StageBody))

	var titles []string
	for _, d := range docs {
		titles = append(titles, d.Title)
	}
	assert.Equal(t, []string{"Story 0", "Story 2", "Story 3", "Story 5", "Story 6", "Story 7", "Story 9"}, titles)
}

func TestGuardianRequiresKey(t *testing.T) {
	srv := guardianServer(t, 1, nil)
	defer srv.Close()

	cfg := guardianConfig(srv)
	cfg.APIKey = ""
	_, err := newService(Deps{}).Search(context.Background(), "apple", cfg, Overrides{})
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestUnknownSource(t *testing.T) {
	_, err := newService(Deps{}).Search(context.Background(), "apple", pipeline.Config{Source: "altavista"}, Overrides{})
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestFilterExcluded(t *testing.T) {
	docs := []models.Document{
		{Link: "https://www.ft.com/content/1"},
		{Link: "https://www.ft.com/fastft/2"},
		{Link: "https://www.ft.com/content/3"},
		{Link: "https://live.example.com/4"},
	}

	got, err := FilterExcluded(context.Background(), pipeline.Config{}, docs)
	require.NoError(t, err)
	assert.Equal(t, []models.Document{docs[0], docs[2], docs[3]}, got)

	got, err = FilterExcluded(context.Background(), pipeline.Config{Exclude: "fastft|live\\."}, docs)
	require.NoError(t, err)
	assert.Equal(t, []models.Document{docs[0], docs[2]}, got)

	_, err = FilterExcluded(context.Background(), pipeline.Config{Exclude: "("}, docs)
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestNormalizeMapping(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		results map[string]string
		want    []models.Document
	}{
		{
			name: "top-level array, same field names",
			body: `[{"guid":"g1","link":"https://a.example/x","title":"T"}]`,
			want: []models.Document{{GUID: "g1", Link: "https://a.example/x", Title: "T", DisplayLink: "a.example"}},
		},
		{
			name:    "nested key with remapped fields",
			body:    `{"data":{"items":[{"url":"https://b.example/y","headline":"H","teaser":"S"}]}}`,
			results: map[string]string{"key": "data.items", "link": "url", "title": "headline", "summary": "teaser"},
			want: []models.Document{{
				GUID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://b.example/y")).String(),
				Link:        "https://b.example/y",
				Title:       "H",
				Summary:     "S",
				DisplayLink: "b.example",
			}},
		},
		{
			name: "provider displayLink kept",
			body: `{"key":[{"link":"https://c.example/z","displayLink":"C News","guid":"g3"}]}`,
			want: []models.Document{{GUID: "g3", Link: "https://c.example/z", DisplayLink: "C News"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(context.Background(), pipeline.Config{Results: tt.results}, Payload{Body: []byte(tt.body)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeShapeErrors(t *testing.T) {
	_, err := Normalize(context.Background(), pipeline.Config{}, Payload{Body: []byte(`<html>`)})
	assert.True(t, pipeline.IsKind(err, pipeline.KindShape))

	_, err = Normalize(context.Background(), pipeline.Config{Results: map[string]string{"key": "results"}}, Payload{Body: []byte(`{"results":"nope"}`)})
	assert.True(t, pipeline.IsKind(err, pipeline.KindShape))
}

type fakeSearcher struct{ req *search.Request }

func (f *fakeSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	f.req = req
	return &search.Response{Search: req.Query, Items: []search.Result{
		{Link: "https://www.reuters.com/apple", Title: "Apple", Snippet: "Apple beat", CacheID: "c1", Date: "2026-10-13T10:00:00Z"},
		{Link: "https://www.ft.com/fastft/apple", Title: "Live", Snippet: "blog"},
	}}, nil
}

func TestGoogleVariant(t *testing.T) {
	s := &fakeSearcher{}
	svc := newService(Deps{Searcher: s})
	p, err := svc.Build(pipeline.Config{Params: map[string]string{"lr": "lang_en", "num": "5"}}, Overrides{Body: keepAll, Text: keepAll})
	require.NoError(t, err)
	assert.Equal(t, pipeline.Google, p.Resolved(pipeline.StageRequest))

	docs, err := p.Run(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, docs, 1, "fastft link filtered")
	assert.Equal(t, "search:c1", docs[0].GUID)
	assert.Equal(t, "Apple beat", docs[0].Summary)
	assert.Equal(t, "www.reuters.com", docs[0].DisplayLink)
	assert.Equal(t, "Tue, Oct 13, 2026 10:00 AM", docs[0].Date)
	assert.Equal(t, "lang_en", s.req.Language)
	assert.Equal(t, 5, s.req.Num)
	assert.Equal(t, 1, s.req.Start)
}

func TestPerCallRequestOnDefaultSource(t *testing.T) {
	svc := newService(Deps{Searcher: &fakeSearcher{}})
	tests := []struct {
		name string
		over pipeline.Config
		want string
	}{
		{"preset", pipeline.Config{}, pipeline.Google},
		{"named rss", pipeline.Config{Request: "rss"}, "rss"},
		{"named default", pipeline.Config{Request: pipeline.Default}, pipeline.Default},
		{"google off", pipeline.Config{Google: pipeline.Bool(false)}, pipeline.Default},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Build(tt.over, Overrides{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Resolved(pipeline.StageRequest))
		})
	}
}

func TestGoogleWithoutSearcher(t *testing.T) {
	_, err := newService(Deps{}).Search(context.Background(), "apple", pipeline.Config{}, Overrides{})
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestTextStrategies(t *testing.T) {
	docs := []models.Document{
		{Link: "https://x/1", Body: `<body><div id="main"><p>Main   story .</p></div><div>side</div></body>`},
		{Link: "https://x/2"},
		{Link: "https://x/3", Summary: "kept", Body: `<p>Other</p>`},
	}

	got, err := TextSelector(context.Background(), pipeline.Config{Selector: "#main"}, docs)
	require.NoError(t, err)
	require.Len(t, got, 2, "document without body dropped")
	assert.Equal(t, "Main story.", got[0].Body)
	assert.Equal(t, "Main story.", got[0].Summary)
	assert.Equal(t, "kept", got[1].Summary)

	got, err = TextReadability(context.Background(), pipeline.Config{}, docs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotContains(t, got[0].Body, "<")
}
