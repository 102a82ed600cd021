package news

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/seenimoa/stocksense/internal/datasource"
	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/search"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// DefaultExclude drops Financial Times "fastft" live-blog links.
const DefaultExclude = "fastft"

// --- request ---

func requestHTTP(c *transport.Client) pipeline.RequestFunc[Payload] {
	return func(ctx context.Context, cfg pipeline.Config, query string) (Payload, error) {
		req, err := transport.CreateRequest(cfg, query)
		if err != nil {
			return Payload{}, err
		}
		body, err := c.Call(ctx, req)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Body: body}, nil
	}
}

// requestGoogle searches the web search provider. Rendered params carry
// provider options: lr, siteSearch, dateRestrict, sort, start, num.
func requestGoogle(s search.Searcher) pipeline.RequestFunc[Payload] {
	return func(ctx context.Context, cfg pipeline.Config, query string) (Payload, error) {
		if s == nil {
			return Payload{}, pipeline.ConfigError("no search provider configured")
		}
		params, err := transport.RenderParams(cfg.Params, cfg, query)
		if err != nil {
			return Payload{}, err
		}
		req := &search.Request{
			Query:        query,
			Start:        atoi(params["start"], 1),
			Num:          atoi(params["num"], search.PageSize),
			Language:     params["lr"],
			Site:         params["siteSearch"],
			DateRestrict: params["dateRestrict"],
			ExactTerms:   params["exactTerms"],
			ExcludeTerms: params["excludeTerms"],
			OrTerms:      params["orTerms"],
			Sort:         params["sort"],
			News:         true,
		}
		resp, err := s.Search(ctx, req)
		if err != nil {
			return Payload{}, err
		}
		docs := make([]models.Document, 0, len(resp.Items))
		for _, r := range resp.Items {
			docs = append(docs, datasource.FromResult(r))
		}
		return documents(docs)
	}
}

func requestRSS(feeds *datasource.RSS) pipeline.RequestFunc[Payload] {
	return func(ctx context.Context, cfg pipeline.Config, query string) (Payload, error) {
		if feeds == nil {
			return Payload{}, pipeline.ConfigError("no feed reader configured")
		}
		docs, err := feeds.Search(ctx, cfg.Feeds, query)
		if err != nil {
			return Payload{}, err
		}
		return documents(docs)
	}
}

// documents wraps already-mapped documents so the default normalizer reads
// them back with an identity mapping.
func documents(docs []models.Document) (Payload, error) {
	body, err := json.Marshal(docs)
	if err != nil {
		return Payload{}, pipeline.ShapeError("encode documents: %v", err)
	}
	return Payload{Body: body, Results: map[string]string{}}, nil
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// --- normalize ---

var fields = []string{"guid", "date", "link", "title", "summary", "displayLink"}

// Normalize maps a provider payload into documents. The "key" mapping
// names the list (default: a top-level "key" member, else the payload
// itself); every other field is read from the path its mapping names, or
// from a member of the same name.
func Normalize(_ context.Context, cfg pipeline.Config, raw Payload) ([]models.Document, error) {
	mapping := cfg.Results
	if raw.Results != nil {
		mapping = raw.Results
	}
	path := func(field string) string {
		if p, ok := mapping[field]; ok && p != "" {
			return p
		}
		return field
	}

	if !gjson.ValidBytes(raw.Body) {
		return nil, pipeline.ShapeError("response is not JSON")
	}
	root := gjson.ParseBytes(raw.Body)
	list := root.Get(path("key"))
	if !list.Exists() {
		list = root
	}
	if !list.IsArray() {
		return nil, pipeline.ShapeError("result list %q is not an array", path("key"))
	}

	items := list.Array()
	docs := make([]models.Document, 0, len(items))
	for _, it := range items {
		v := make(map[string]string, len(fields))
		for _, f := range fields {
			v[f] = it.Get(path(f)).String()
		}
		d := models.Document{
			GUID:        v["guid"],
			Date:        utils.ReformatDate(v["date"]),
			Link:        v["link"],
			Title:       v["title"],
			Summary:     v["summary"],
			DisplayLink: v["displayLink"],
		}
		if d.DisplayLink == "" {
			d.DisplayLink = utils.HostOf(d.Link)
		}
		if d.GUID == "" && d.Link != "" {
			d.GUID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(d.Link)).String()
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// --- filter ---

// FilterExcluded drops documents whose link matches cfg.Exclude
// (DefaultExclude when empty). Order is preserved.
func FilterExcluded(_ context.Context, cfg pipeline.Config, docs []models.Document) ([]models.Document, error) {
	pattern := cfg.Exclude
	if pattern == "" {
		pattern = DefaultExclude
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, pipeline.ConfigError("invalid exclude pattern %q: %v", pattern, err)
	}
	return pipeline.Keep(docs, func(d models.Document) bool {
		return !re.MatchString(d.Link)
	}), nil
}
