package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEachDropsFailures(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	tally := NewTally()
	ctx := WithTally(context.Background(), tally)

	kept, dropped := Each(ctx, EachOptions{Domain: "test", Stage: StageBody, Limit: 4}, items,
		func(_ context.Context, n int) (int, error) {
			if n%3 == 1 { // 1, 4, 7
				return 0, errors.New("fetch failed")
			}
			return n * 10, nil
		})

	assert.Equal(t, 3, dropped)
	assert.Equal(t, []int{0, 20, 30, 50, 60, 80, 90}, kept)
	assert.Equal(t, 3, tally.Get("test", StageBody))
	assert.Equal(t, 3, tally.Total())
}

func TestEachPreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	kept, dropped := Each(context.Background(), EachOptions{Domain: "test", Stage: StageText}, items,
		func(_ context.Context, n int) (int, error) {
			time.Sleep(time.Duration(n) * time.Millisecond)
			return n, nil
		})
	assert.Zero(t, dropped)
	assert.Equal(t, items, kept)
}

func TestEachEmpty(t *testing.T) {
	kept, dropped := Each(context.Background(), EachOptions{}, []string(nil),
		func(_ context.Context, s string) (string, error) { return s, nil })
	assert.Empty(t, kept)
	assert.Zero(t, dropped)
}

func TestTallyNilSafe(t *testing.T) {
	var tally *Tally
	tally.Add("x", StageBody, 2)
	assert.Zero(t, tally.Get("x", StageBody))
	assert.Nil(t, TallyFrom(context.Background()))
}

func TestMergeConfig(t *testing.T) {
	base := Config{
		Source:  "guardian",
		URL:     "https://content.guardianapis.com/search",
		Params:  map[string]string{"q": "{{.Query}}", "api-key": "{{.Key}}"},
		Results: map[string]string{"key": "results", "link": "webUrl"},
		Auth:    Bool(true),
	}
	over := Config{
		Params:      map[string]string{"page-size": "20"},
		Results:     map[string]string{"title": "webTitle"},
		APIKey:      "k",
		Concurrency: 2,
	}
	got := Merge(base, over)

	assert.Equal(t, "guardian", got.Source)
	assert.True(t, got.NeedsAuth())
	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, 2, got.Limit())
	assert.Equal(t, map[string]string{"q": "{{.Query}}", "api-key": "{{.Key}}", "page-size": "20"}, got.Params)
	assert.Equal(t, "webTitle", got.Results["title"])
	assert.Len(t, base.Params, 2, "base must not be mutated")
}

func TestLimitDefault(t *testing.T) {
	assert.Equal(t, DefaultConcurrency, Config{}.Limit())
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: KindShape, Domain: "sentiment", Stage: StageNormalize, Message: "value is not a number"}
	assert.Equal(t, "sentiment shape error in normalize: value is not a number", e.Error())

	wrapped := TransportError("", errors.New("dial tcp: refused"))
	assert.Equal(t, "transport error: dial tcp: refused", wrapped.Error())
}

func TestPresetsApply(t *testing.T) {
	presets := Presets{
		Default:    {Google: Bool(true), Timeout: time.Minute},
		"guardian": {URL: "https://content.guardianapis.com/search", Auth: Bool(true), Results: map[string]string{"key": "results"}},
	}

	got, err := presets.Apply("news", Config{})
	assert.NoError(t, err)
	assert.Equal(t, Default, got.Source)
	assert.True(t, got.UseGoogle())

	got, err = presets.Apply("news", Config{Source: "guardian", APIKey: "k", Results: map[string]string{"title": "webTitle"}})
	assert.NoError(t, err)
	assert.True(t, got.NeedsAuth())
	assert.Equal(t, "k", got.APIKey)
	assert.Equal(t, map[string]string{"key": "results", "title": "webTitle"}, got.Results)

	_, err = presets.Apply("news", Config{Source: "nope"})
	assert.True(t, IsKind(err, KindConfiguration))
	assert.Contains(t, err.Error(), "news configuration error")

	assert.Equal(t, []string{Default, "guardian"}, presets.Names())
}

func TestPresetsApplyExplicitFalse(t *testing.T) {
	presets := Presets{
		Default:    {Google: Bool(true)},
		"guardian": {Auth: Bool(true)},
	}

	got, err := presets.Apply("news", Config{Google: Bool(false)})
	require.NoError(t, err)
	assert.False(t, got.UseGoogle())
	require.NotNil(t, got.Google)

	got, err = presets.Apply("news", Config{Source: "guardian", Auth: Bool(false)})
	require.NoError(t, err)
	assert.False(t, got.NeedsAuth())

	got, err = presets.Apply("news", Config{Request: "rss"})
	require.NoError(t, err)
	assert.False(t, got.UseGoogle(), "a named request replaces the preset google variant")
	assert.Equal(t, "rss", got.Request)

	got, err = presets.Apply("news", Config{Request: "rss", Google: Bool(true)})
	require.NoError(t, err)
	assert.True(t, got.UseGoogle())
}

func TestMergeKeepsBaseBoolWhenUnset(t *testing.T) {
	base := Config{Auth: Bool(true), Google: Bool(true)}
	got := Merge(base, Config{Google: Bool(false)})
	assert.True(t, got.NeedsAuth())
	assert.False(t, got.UseGoogle())
	assert.True(t, *base.Google, "base must not be mutated")
}
