// Package pipeline implements the staged request/normalize/transform
// framework shared by the news, sentiment and stocks domains.
package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stocksense/internal/logger"
	"github.com/seenimoa/stocksense/internal/metrics"
)

// Stage names one step of a pipeline.
type Stage string

const (
	StageAuthenticate Stage = "authenticate"
	StageRequest      Stage = "request"
	StageNormalize    Stage = "normalize"
	StageFilter       Stage = "filter"
	StageBody         Stage = "body"
	StageText         Stage = "text"
)

// Strategy names every registry understands.
const (
	Default = "default"
	Google  = "google"
)

// AuthFunc prepares credentials for an invocation.
type AuthFunc func(ctx context.Context, cfg Config) error

// RequestFunc turns a query into a raw provider response.
type RequestFunc[R any] func(ctx context.Context, cfg Config, query string) (R, error)

// NormalizeFunc maps a raw response into the domain result.
type NormalizeFunc[R, T any] func(ctx context.Context, cfg Config, raw R) (T, error)

// TransformFunc refines a domain result (filter, body, text).
type TransformFunc[T any] func(ctx context.Context, cfg Config, in T) (T, error)

// Overrides are caller-supplied stage functions. A non-nil field replaces
// whatever the registry would resolve for that stage.
type Overrides[R, T any] struct {
	Authenticate AuthFunc
	Request      RequestFunc[R]
	Normalize    NormalizeFunc[R, T]
	Filter       TransformFunc[T]
	Body         TransformFunc[T]
	Text         TransformFunc[T]
}

func (o Overrides[R, T]) transform(stage Stage) TransformFunc[T] {
	switch stage {
	case StageFilter:
		return o.Filter
	case StageBody:
		return o.Body
	case StageText:
		return o.Text
	}
	return nil
}

type step[T any] struct {
	stage Stage
	fn    TransformFunc[T]
}

// Pipeline is a fully resolved sequence of stage functions. It is built once
// per invocation by Registry.Build and is safe to Run concurrently.
type Pipeline[R, T any] struct {
	domain    string
	cfg       Config
	auth      AuthFunc
	request   RequestFunc[R]
	normalize NormalizeFunc[R, T]
	steps     []step[T]
	resolved  map[Stage]string
}

// Config returns the effective configuration of the pipeline.
func (p *Pipeline[R, T]) Config() Config { return p.cfg }

// Resolved reports which strategy was selected for stage: a registered
// name, or "override" for a caller function.
func (p *Pipeline[R, T]) Resolved(stage Stage) string { return p.resolved[stage] }

// Stages lists the stages in execution order.
func (p *Pipeline[R, T]) Stages() []Stage {
	out := []Stage{StageAuthenticate, StageRequest, StageNormalize}
	for _, s := range p.steps {
		out = append(out, s.stage)
	}
	return out
}

// Run executes every stage in order. The first failure stops the run and is
// returned as an *Error annotated with domain and stage.
func (p *Pipeline[R, T]) Run(ctx context.Context, query string) (T, error) {
	var zero T
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	log := logger.For(p.domain).WithField("query", query)

	if err := p.observe(ctx, log, StageAuthenticate, func() error {
		if !p.cfg.NeedsAuth() {
			return nil
		}
		return p.auth(ctx, p.cfg)
	}); err != nil {
		return zero, err
	}

	var raw R
	if err := p.observe(ctx, log, StageRequest, func() (err error) {
		raw, err = p.request(ctx, p.cfg, query)
		return err
	}); err != nil {
		return zero, err
	}

	var out T
	if err := p.observe(ctx, log, StageNormalize, func() (err error) {
		out, err = p.normalize(ctx, p.cfg, raw)
		return err
	}); err != nil {
		return zero, err
	}

	for _, s := range p.steps {
		if err := p.observe(ctx, log, s.stage, func() (err error) {
			out, err = s.fn(ctx, p.cfg, out)
			return err
		}); err != nil {
			return zero, err
		}
	}
	return out, nil
}

func (p *Pipeline[R, T]) observe(ctx context.Context, log *logrus.Entry, stage Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return p.fail(log, stage, err)
	}
	start := time.Now()
	err := fn()
	metrics.StageDuration.WithLabelValues(p.domain, string(stage)).Observe(time.Since(start).Seconds())
	if err != nil {
		return p.fail(log, stage, err)
	}
	log.WithField("stage", stage).Debugf("stage done in %s", time.Since(start))
	return nil
}

func (p *Pipeline[R, T]) fail(log *logrus.Entry, stage Stage, err error) error {
	pe := annotate(err, p.domain, stage)
	metrics.StageErrors.WithLabelValues(p.domain, string(stage), string(pe.Kind)).Inc()
	log.WithField("stage", stage).Errorf("pipeline failed: %v", pe)
	return pe
}

// RequireKey is the default authenticator: it fails when no API key is set.
func RequireKey(domain string) AuthFunc {
	return func(_ context.Context, cfg Config) error {
		if cfg.APIKey == "" {
			return ConfigError("%s source %q requires an api_key", domain, cfg.Source)
		}
		return nil
	}
}
