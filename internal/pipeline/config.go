package pipeline

import (
	"maps"
	"slices"
	"time"
)

// Config holds the per-domain options that drive a pipeline invocation.
// Stage fields (Request, Normalize, Filter, Body, Text) name a registered
// strategy; an empty name selects the default.
type Config struct {
	Source    string `mapstructure:"source" yaml:"source" json:"source,omitempty"`
	Request   string `mapstructure:"request" yaml:"request" json:"request,omitempty"`
	Normalize string `mapstructure:"normalize" yaml:"normalize" json:"normalize,omitempty"`
	Filter    string `mapstructure:"filter" yaml:"filter" json:"filter,omitempty"`
	Body      string `mapstructure:"body" yaml:"body" json:"body,omitempty"`
	Text      string `mapstructure:"text" yaml:"text" json:"text,omitempty"`

	// Transport. URL, Params, Headers and Data are text/template strings
	// evaluated against {{.Query}} and {{.Key}}.
	URL     string            `mapstructure:"url" yaml:"url" json:"url,omitempty"`
	Method  string            `mapstructure:"method" yaml:"method" json:"method,omitempty"`
	Params  map[string]string `mapstructure:"params" yaml:"params" json:"params,omitempty"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers" json:"headers,omitempty"`
	Data    string            `mapstructure:"data" yaml:"data" json:"data,omitempty"`

	// Auth and Google are tri-state: nil inherits the preset, an explicit
	// false switches the preset value off.
	Auth   *bool  `mapstructure:"auth" yaml:"auth" json:"auth,omitempty"`
	APIKey string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Google *bool  `mapstructure:"google" yaml:"google" json:"google,omitempty"`

	// Results maps document fields to gjson paths in the provider payload;
	// the "key" entry names the list itself.
	Results       map[string]string `mapstructure:"results" yaml:"results" json:"results,omitempty"`
	Selector      string            `mapstructure:"selector" yaml:"selector" json:"selector,omitempty"`
	ArticleParams map[string]string `mapstructure:"article_params" yaml:"article_params" json:"article_params,omitempty"`
	Exclude       string            `mapstructure:"exclude" yaml:"exclude" json:"exclude,omitempty"`
	Feeds         []string          `mapstructure:"feeds" yaml:"feeds" json:"feeds,omitempty"`

	StartDate string `mapstructure:"startdate" yaml:"startdate" json:"startdate,omitempty"`
	EndDate   string `mapstructure:"enddate" yaml:"enddate" json:"enddate,omitempty"`

	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout,omitempty"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency,omitempty"`
}

// DefaultConcurrency bounds fan-out when Config.Concurrency is unset.
const DefaultConcurrency = 5

// Bool returns a pointer to v for the tri-state Config fields.
func Bool(v bool) *bool { return &v }

// NeedsAuth reports whether the authenticate stage checks for a key.
func (c Config) NeedsAuth() bool { return c.Auth != nil && *c.Auth }

// UseGoogle reports whether the request stage takes the google variant.
func (c Config) UseGoogle() bool { return c.Google != nil && *c.Google }

// Limit returns the fan-out bound for this config.
func (c Config) Limit() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return DefaultConcurrency
}

// Merge returns base with every set field of over applied on top. Map
// fields are merged key by key. Neither input is modified.
func Merge(base, over Config) Config {
	out := base
	setString(&out.Source, over.Source)
	setString(&out.Request, over.Request)
	setString(&out.Normalize, over.Normalize)
	setString(&out.Filter, over.Filter)
	setString(&out.Body, over.Body)
	setString(&out.Text, over.Text)
	setString(&out.URL, over.URL)
	setString(&out.Method, over.Method)
	setString(&out.Data, over.Data)
	setString(&out.APIKey, over.APIKey)
	setString(&out.Selector, over.Selector)
	setString(&out.Exclude, over.Exclude)
	setString(&out.StartDate, over.StartDate)
	setString(&out.EndDate, over.EndDate)

	if over.Auth != nil {
		out.Auth = Bool(*over.Auth)
	}
	if over.Google != nil {
		out.Google = Bool(*over.Google)
	}

	out.Params = mergeMap(base.Params, over.Params)
	out.Headers = mergeMap(base.Headers, over.Headers)
	out.Results = mergeMap(base.Results, over.Results)
	out.ArticleParams = mergeMap(base.ArticleParams, over.ArticleParams)

	if len(over.Feeds) > 0 {
		out.Feeds = append([]string(nil), over.Feeds...)
	}
	if over.Timeout > 0 {
		out.Timeout = over.Timeout
	}
	if over.Concurrency > 0 {
		out.Concurrency = over.Concurrency
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeMap(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}

// Presets maps source names to base configurations for one domain.
type Presets map[string]Config

// Apply merges cfg over the preset named by cfg.Source, "default" when
// empty. A request strategy named by cfg replaces the preset's google
// variant unless cfg sets google itself. An unknown source is a
// configuration error.
func (p Presets) Apply(domain string, cfg Config) (Config, error) {
	name := nameOr(cfg.Source)
	base, ok := p[name]
	if !ok {
		e := ConfigError("unknown source %q", name)
		e.Domain = domain
		return Config{}, e
	}
	out := Merge(base, cfg)
	if cfg.Request != "" && cfg.Google == nil {
		out.Google = nil
	}
	out.Source = name
	return out, nil
}

// Names lists the preset names, sorted.
func (p Presets) Names() []string {
	return slices.Sorted(maps.Keys(p))
}
