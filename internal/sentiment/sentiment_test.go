package sentiment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
)

func TestPolarity(t *testing.T) {
	tests := []struct {
		v    float64
		want models.Polarity
	}{
		{0, models.PolarityNegative},
		{0.44, models.PolarityNegative},
		{0.45, models.PolarityNeutral},
		{0.5, models.PolarityNeutral},
		{0.55, models.PolarityNeutral},
		{0.56, models.PolarityPositive},
		{1, models.PolarityPositive},
	}
	for _, tt := range tests {
		if got := Polarity(tt.v); got != tt.want {
			t.Errorf("Polarity(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0.83, "83.00"},
		{0.2, "80.00"},
		{0.5, "50.00"},
		{0, "100.00"},
		{1, "100.00"},
	}
	for _, tt := range tests {
		if got := Confidence(tt.v); got != tt.want {
			t.Errorf("Confidence(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestScoreHeadline(t *testing.T) {
	score, conf := ScoreHeadline("Apple shares rally 5% on strong growth and positive results")
	assert.Positive(t, score)
	assert.Positive(t, conf)

	score, _ = ScoreHeadline("Market crash: stocks plunge amid fraud investigation concerns")
	assert.Negative(t, score)

	score, conf = ScoreHeadline("Company announces new office location in Austin")
	assert.Zero(t, score)
	assert.LessOrEqual(t, conf, 0.2)
}

func TestScoreText(t *testing.T) {
	assert.Equal(t, 0.5, ScoreText("Company announces new office location"))
	assert.Equal(t, 1.0, ScoreText("bullish rally"))
	assert.Equal(t, 0.0, ScoreText("crash"))
}

func newService(c *transport.Client) *Service {
	return NewService(NewRegistry(c), pipeline.Config{})
}

func TestKeywordDefault(t *testing.T) {
	res, err := newService(nil).Score(context.Background(), "Stocks crash as fraud investigation widens", pipeline.Config{}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, models.PolarityNegative, res.Polarity)
	assert.Equal(t, "Stocks crash as fraud investigation widens", res.Text)
	assert.Equal(t, "100.00", res.Confidence)
}

func TestIndicoPreset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"api_key":"k","data":"great \"quarter\""}`, string(b))
		w.Write([]byte(`{"results":0.82}`))
	}))
	defer srv.Close()

	svc := newService(transport.New(time.Second))
	res, err := svc.Score(context.Background(), `great "quarter"`, pipeline.Config{Source: "indico", URL: srv.URL, APIKey: "k"}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 0.82, res.Value)
	assert.Equal(t, models.PolarityPositive, res.Polarity)
	assert.Equal(t, "82.00", res.Confidence)
}

func TestIndicoRequiresKey(t *testing.T) {
	_, err := newService(transport.New(time.Second)).Score(context.Background(), "x", pipeline.Config{Source: "indico"}, Overrides{})
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestURLInputIsFetched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><script>crash()</script><p>Shares surge on strong growth</p></body></html>`))
	}))
	defer srv.Close()

	res, err := newService(transport.New(time.Second)).Score(context.Background(), srv.URL+"/story", pipeline.Config{}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, models.PolarityPositive, res.Polarity)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		results map[string]string
		want    float64
		shape   bool
	}{
		{name: "results", body: `{"results":0.7}`, want: 0.7},
		{name: "data", body: `{"data":0.3}`, want: 0.3},
		{name: "bare number", body: `0.51`, want: 0.51},
		{name: "configured path", body: `{"sentiment":{"score":0.9}}`, results: map[string]string{"value": "sentiment.score"}, want: 0.9},
		{name: "string value", body: `{"results":"high"}`, shape: true},
		{name: "missing path", body: `{"x":1}`, results: map[string]string{"value": "results"}, shape: true},
		{name: "out of range", body: `{"results":1.5}`, shape: true},
		{name: "not json", body: `<html>`, shape: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(context.Background(), pipeline.Config{Results: tt.results}, []byte(tt.body))
			if tt.shape {
				assert.True(t, pipeline.IsKind(err, pipeline.KindShape), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, Polarity(tt.want), got.Polarity)
		})
	}
}

func TestOverrideNormalize(t *testing.T) {
	custom := func(context.Context, pipeline.Config, []byte) (models.SentimentResult, error) {
		return Result(0.1), nil
	}
	res, err := newService(nil).Score(context.Background(), "anything", pipeline.Config{}, Overrides{Normalize: custom})
	require.NoError(t, err)
	assert.Equal(t, models.PolarityNegative, res.Polarity)
	assert.Equal(t, "90.00", res.Confidence)
}
