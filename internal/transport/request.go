package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/template"

	"github.com/seenimoa/stocksense/internal/pipeline"
)

// Request is a fully rendered HTTP call.
type Request struct {
	Method  string
	URL     string
	Params  map[string]string
	Headers map[string]string
	Body    string
}

// TemplateData is what configured url/params/headers/data templates see.
type TemplateData struct {
	Query string
	Key   string
}

// CreateRequest renders cfg's url, params, headers and data templates for
// query. Empty params and headers are omitted.
func CreateRequest(cfg pipeline.Config, query string) (Request, error) {
	if cfg.URL == "" {
		return Request{}, pipeline.ConfigError("source %q has no url", cfg.Source)
	}
	data := TemplateData{Query: query, Key: cfg.APIKey}

	u, err := render("url", cfg.URL, data)
	if err != nil {
		return Request{}, err
	}
	req := Request{
		Method: strings.ToUpper(cfg.Method),
		URL:    u,
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Params, err = renderMap("params", cfg.Params, data); err != nil {
		return Request{}, err
	}
	if req.Headers, err = renderMap("headers", cfg.Headers, data); err != nil {
		return Request{}, err
	}
	if cfg.Data != "" {
		if req.Body, err = render("data", cfg.Data, data); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

// RenderParams renders a template map such as article_params.
func RenderParams(params map[string]string, cfg pipeline.Config, query string) (map[string]string, error) {
	return renderMap("params", params, TemplateData{Query: query, Key: cfg.APIKey})
}

func (r Request) build(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, v := range r.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if r.Body != "" && r.Headers["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// funcs are available to every template. json quotes a value for embedding
// in a JSON body: {"data": {{json .Query}}}.
var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"upper": strings.ToUpper,
}

func render(name, text string, data TemplateData) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t, err := template.New(name).Option("missingkey=error").Funcs(funcs).Parse(text)
	if err != nil {
		return "", pipeline.ConfigError("invalid %s template: %v", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", pipeline.ConfigError("render %s template: %v", name, err)
	}
	return b.String(), nil
}

func renderMap(name string, in map[string]string, data TemplateData) (map[string]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		s, err := render(fmt.Sprintf("%s.%s", name, k), v, data)
		if err != nil {
			return nil, err
		}
		if s != "" {
			out[k] = s
		}
	}
	return out, nil
}
