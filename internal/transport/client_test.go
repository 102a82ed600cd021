package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stocksense/internal/pipeline"
)

func TestCallUnwrapsResponseEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("api-key"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"response":{"status":"ok","results":[{"webUrl":"https://x/1"}]}}`))
	}))
	defer srv.Close()

	cfg := pipeline.Config{
		URL:    srv.URL + "/search",
		Params: map[string]string{"q": "{{.Query}}", "api-key": "{{.Key}}", "empty": ""},
		APIKey: "secret",
	}
	req, err := CreateRequest(cfg, "apple")
	require.NoError(t, err)
	_, hasEmpty := req.Params["empty"]
	assert.False(t, hasEmpty)

	body, err := New(time.Second).Call(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","results":[{"webUrl":"https://x/1"}]}`, string(body))
}

func TestCallWithoutEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":0.82}`))
	}))
	defer srv.Close()

	body, err := New(time.Second).Call(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":0.82}`, string(body))
}

func TestCallPostsRenderedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"data":"great quarter"}`, string(b))
		w.Write([]byte(`{"results":0.9}`))
	}))
	defer srv.Close()

	cfg := pipeline.Config{URL: srv.URL, Method: "post", Data: `{"data":{{json .Query}}}`}
	req, err := CreateRequest(cfg, "great quarter")
	require.NoError(t, err)
	_, err = New(time.Second).Call(context.Background(), req)
	require.NoError(t, err)
}

func TestErrorPrefersBodyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := New(time.Second).Call(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindTransport))
	assert.Contains(t, err.Error(), "invalid api key")

	var httpErr *ErrHTTP
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
}

func TestErrorFallsBackToBodyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestErrorFallsBackToRawError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), url, nil)
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindTransport))
}

func TestFetchReturnsRawHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("amp"))
		w.Write([]byte(`<html><body><p>Hi</p></body></html>`))
	}))
	defer srv.Close()

	html, err := New(time.Second, WithRateLimit(100, 1)).Fetch(context.Background(), srv.URL, map[string]string{"amp": "1"})
	require.NoError(t, err)
	assert.Equal(t, `<html><body><p>Hi</p></body></html>`, html)
}

func TestCreateRequestErrors(t *testing.T) {
	_, err := CreateRequest(pipeline.Config{}, "q")
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))

	_, err = CreateRequest(pipeline.Config{URL: "http://x/{{.Nope}}"}, "q")
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"envelope", `{"response":{"a":1}}`, `{"a":1}`},
		{"scalar response kept whole", `{"response":"ok"}`, `{"response":"ok"}`},
		{"no envelope", `{"a":1}`, `{"a":1}`},
		{"not json", `<p>x</p>`, `<p>x</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Unwrap([]byte(tt.in))))
		})
	}
}
