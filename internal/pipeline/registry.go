package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/stocksense/internal/logger"
)

// Override is reported by Pipeline.Resolved for caller-supplied functions.
const Override = "override"

// Registry is a thread-safe set of named strategies per stage for one
// domain. Strategies are registered at construction; Build resolves exactly
// one function per stage.
type Registry[R, T any] struct {
	mu         sync.RWMutex
	domain     string
	stages     []Stage // transform stages after normalize, in order
	auth       AuthFunc
	requests   map[string]RequestFunc[R]
	normalizes map[string]NormalizeFunc[R, T]
	transforms map[Stage]map[string]TransformFunc[T]
}

// NewRegistry creates an empty registry whose pipelines run the given
// transform stages after normalize.
func NewRegistry[R, T any](domain string, stages ...Stage) *Registry[R, T] {
	r := &Registry[R, T]{
		domain:     domain,
		stages:     stages,
		auth:       RequireKey(domain),
		requests:   make(map[string]RequestFunc[R]),
		normalizes: make(map[string]NormalizeFunc[R, T]),
		transforms: make(map[Stage]map[string]TransformFunc[T]),
	}
	for _, s := range stages {
		r.transforms[s] = make(map[string]TransformFunc[T])
	}
	return r
}

// Domain returns the domain name used in errors, logs and metrics.
func (r *Registry[R, T]) Domain() string { return r.domain }

// SetAuthenticator replaces the default RequireKey authenticator.
func (r *Registry[R, T]) SetAuthenticator(fn AuthFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = fn
}

// RegisterRequest adds a named request strategy. Duplicates overwrite.
func (r *Registry[R, T]) RegisterRequest(name string, fn RequestFunc[R]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[name] = fn
}

// RegisterNormalize adds a named normalize strategy.
func (r *Registry[R, T]) RegisterNormalize(name string, fn NormalizeFunc[R, T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalizes[name] = fn
}

// RegisterTransform adds a named strategy for one of the registry's
// transform stages.
func (r *Registry[R, T]) RegisterTransform(stage Stage, name string, fn TransformFunc[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.transforms[stage]
	if !ok {
		return fmt.Errorf("%s pipeline has no %s stage", r.domain, stage)
	}
	m[name] = fn
	return nil
}

// Names lists the strategies registered for stage, sorted.
func (r *Registry[R, T]) Names(stage Stage) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch stage {
	case StageRequest:
		return slices.Sorted(maps.Keys(r.requests))
	case StageNormalize:
		return slices.Sorted(maps.Keys(r.normalizes))
	}
	return slices.Sorted(maps.Keys(r.transforms[stage]))
}

// Build resolves every stage for cfg. Precedence per stage: caller override,
// then (request only) the google variant when cfg.Google is true, then the
// strategy named in cfg, then "default". Unknown names fail immediately.
func (r *Registry[R, T]) Build(cfg Config, o Overrides[R, T]) (*Pipeline[R, T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := &Pipeline[R, T]{
		domain:   r.domain,
		cfg:      cfg,
		auth:     r.auth,
		resolved: make(map[Stage]string),
	}
	if o.Authenticate != nil {
		p.auth = o.Authenticate
		p.resolved[StageAuthenticate] = Override
	}

	switch {
	case o.Request != nil:
		p.request = o.Request
		p.resolved[StageRequest] = Override
	case cfg.UseGoogle():
		fn, ok := r.requests[Google]
		if !ok {
			return nil, r.unknown(StageRequest, Google)
		}
		p.request = fn
		p.resolved[StageRequest] = Google
	default:
		name := nameOr(cfg.Request)
		fn, ok := r.requests[name]
		if !ok {
			return nil, r.unknown(StageRequest, name)
		}
		p.request = fn
		p.resolved[StageRequest] = name
	}

	if o.Normalize != nil {
		p.normalize = o.Normalize
		p.resolved[StageNormalize] = Override
	} else {
		name := nameOr(cfg.Normalize)
		fn, ok := r.normalizes[name]
		if !ok {
			return nil, r.unknown(StageNormalize, name)
		}
		p.normalize = fn
		p.resolved[StageNormalize] = name
	}

	for _, stage := range r.stages {
		if fn := o.transform(stage); fn != nil {
			p.steps = append(p.steps, step[T]{stage: stage, fn: fn})
			p.resolved[stage] = Override
			continue
		}
		name := nameOr(stageName(cfg, stage))
		fn, ok := r.transforms[stage][name]
		if !ok {
			return nil, r.unknown(stage, name)
		}
		p.steps = append(p.steps, step[T]{stage: stage, fn: fn})
		p.resolved[stage] = name
	}
	logger.For(r.domain).WithFields(logrus.Fields{
		"stages":  p.Stages(),
		"source":  cfg.Source,
		"request": p.resolved[StageRequest],
	}).Debug("pipeline resolved")
	return p, nil
}

func (r *Registry[R, T]) unknown(stage Stage, name string) *Error {
	e := ConfigError("unknown %s strategy %q", stage, name)
	e.Domain = r.domain
	e.Stage = stage
	return e
}

func nameOr(name string) string {
	if name == "" {
		return Default
	}
	return name
}

func stageName(cfg Config, stage Stage) string {
	switch stage {
	case StageFilter:
		return cfg.Filter
	case StageBody:
		return cfg.Body
	case StageText:
		return cfg.Text
	}
	return ""
}
