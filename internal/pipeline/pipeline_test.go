package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRegistry builds a string to []string registry whose functions record
// which strategy ran.
func testRegistry(trace *[]string) *Registry[string, []string] {
	r := NewRegistry[string, []string]("test", StageFilter)
	r.RegisterRequest(Default, func(_ context.Context, _ Config, q string) (string, error) {
		*trace = append(*trace, "request:default")
		return q, nil
	})
	r.RegisterRequest(Google, func(_ context.Context, _ Config, q string) (string, error) {
		*trace = append(*trace, "request:google")
		return "g:" + q, nil
	})
	r.RegisterRequest("upper", func(_ context.Context, _ Config, q string) (string, error) {
		*trace = append(*trace, "request:upper")
		return strings.ToUpper(q), nil
	})
	r.RegisterNormalize(Default, func(_ context.Context, _ Config, raw string) ([]string, error) {
		*trace = append(*trace, "normalize:default")
		return strings.Split(raw, ","), nil
	})
	_ = r.RegisterTransform(StageFilter, Default, func(_ context.Context, _ Config, in []string) ([]string, error) {
		*trace = append(*trace, "filter:default")
		return Keep(in, func(s string) bool { return s != "" }), nil
	})
	return r
}

func TestResolveDefaults(t *testing.T) {
	var trace []string
	p, err := testRegistry(&trace).Build(Config{}, Overrides[string, []string]{})
	require.NoError(t, err)

	out, err := p.Run(context.Background(), "a,,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Equal(t, []string{"request:default", "normalize:default", "filter:default"}, trace)
	assert.Equal(t, Default, p.Resolved(StageRequest))
}

func TestResolveNormalizeOverride(t *testing.T) {
	var trace []string
	custom := func(_ context.Context, _ Config, raw string) ([]string, error) {
		trace = append(trace, "normalize:custom")
		return []string{raw}, nil
	}
	p, err := testRegistry(&trace).Build(Config{}, Overrides[string, []string]{Normalize: custom})
	require.NoError(t, err)

	out, err := p.Run(context.Background(), "x,y")
	require.NoError(t, err)
	assert.Equal(t, []string{"x,y"}, out)
	assert.Contains(t, trace, "normalize:custom")
	assert.NotContains(t, trace, "normalize:default")
	assert.Equal(t, Override, p.Resolved(StageNormalize))
}

func TestResolveGoogleVariant(t *testing.T) {
	var trace []string
	p, err := testRegistry(&trace).Build(Config{Google: Bool(true), Request: "upper"}, Overrides[string, []string]{})
	require.NoError(t, err)

	out, err := p.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"g:q"}, out)
	assert.Equal(t, "request:google", trace[0])
}

func TestResolveOverrideBeatsGoogle(t *testing.T) {
	var trace []string
	custom := func(_ context.Context, _ Config, q string) (string, error) { return "c", nil }
	p, err := testRegistry(&trace).Build(Config{Google: Bool(true)}, Overrides[string, []string]{Request: custom})
	require.NoError(t, err)
	assert.Equal(t, Override, p.Resolved(StageRequest))
}

func TestResolveNamedStrategy(t *testing.T) {
	var trace []string
	p, err := testRegistry(&trace).Build(Config{Request: "upper"}, Overrides[string, []string]{})
	require.NoError(t, err)
	out, err := p.Run(context.Background(), "a,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, out)
}

func TestResolveUnknownName(t *testing.T) {
	var trace []string
	_, err := testRegistry(&trace).Build(Config{Filter: "nope"}, Overrides[string, []string]{})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfiguration))

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StageFilter, pe.Stage)
	assert.Equal(t, "test", pe.Domain)
	assert.Empty(t, trace, "nothing should run when resolution fails")
}

func TestGoogleMissingVariant(t *testing.T) {
	r := NewRegistry[string, string]("bare")
	r.RegisterRequest(Default, func(context.Context, Config, string) (string, error) { return "", nil })
	r.RegisterNormalize(Default, func(_ context.Context, _ Config, s string) (string, error) { return s, nil })
	_, err := r.Build(Config{Google: Bool(true)}, Overrides[string, string]{})
	assert.True(t, IsKind(err, KindConfiguration))
}

func TestAuthPassThrough(t *testing.T) {
	var trace []string
	r := testRegistry(&trace)
	called := false
	r.SetAuthenticator(func(context.Context, Config) error {
		called = true
		return errors.New("should not run")
	})
	p, err := r.Build(Config{Auth: Bool(false)}, Overrides[string, []string]{})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestAuthMissingKey(t *testing.T) {
	var trace []string
	p, err := testRegistry(&trace).Build(Config{Auth: Bool(true), Source: "guardian"}, Overrides[string, []string]{})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfiguration))
	assert.Empty(t, trace)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, StageAuthenticate, pe.Stage)
}

func TestStageFailureShortCircuits(t *testing.T) {
	var trace []string
	failing := func(context.Context, Config, string) (string, error) {
		return "", TransportError("upstream said no", nil)
	}
	p, err := testRegistry(&trace).Build(Config{}, Overrides[string, []string]{Request: failing})
	require.NoError(t, err)

	out, err := p.Run(context.Background(), "a")
	assert.Nil(t, out)
	assert.True(t, IsKind(err, KindTransport))
	assert.Contains(t, err.Error(), "upstream said no")
	assert.Empty(t, trace, "normalize and filter must not run")
}

func TestForeignErrorIsWrapped(t *testing.T) {
	var trace []string
	bad := func(context.Context, Config, string) ([]string, error) {
		return nil, fmt.Errorf("bad payload")
	}
	p, err := testRegistry(&trace).Build(Config{}, Overrides[string, []string]{Normalize: bad})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "a")
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindShape, pe.Kind)
	assert.Equal(t, StageNormalize, pe.Stage)
}

func TestTimeout(t *testing.T) {
	var trace []string
	slow := func(ctx context.Context, _ Config, q string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	p, err := testRegistry(&trace).Build(Config{Timeout: 20 * time.Millisecond}, Overrides[string, []string]{Request: slow})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	assert.Contains(t, err.Error(), "timed out")
}

func TestStages(t *testing.T) {
	var trace []string
	p, err := testRegistry(&trace).Build(Config{}, Overrides[string, []string]{})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageAuthenticate, StageRequest, StageNormalize, StageFilter}, p.Stages())
}

func TestRegisterUnknownStage(t *testing.T) {
	r := NewRegistry[string, string]("s")
	err := r.RegisterTransform(StageBody, Default, func(_ context.Context, _ Config, s string) (string, error) { return s, nil })
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	var trace []string
	assert.Equal(t, []string{Default, Google, "upper"}, testRegistry(&trace).Names(StageRequest))
}
