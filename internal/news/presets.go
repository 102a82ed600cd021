package news

import (
	"time"

	"github.com/seenimoa/stocksense/internal/pipeline"
)

// Presets are the builtin news sources. "custom" runs the templated HTTP
// request against the caller's url with no preset values.
var Presets = pipeline.Presets{
	pipeline.Default: {
		Google:  pipeline.Bool(true),
		Exclude: DefaultExclude,
		Timeout: time.Minute,
	},
	"custom": {},
	"guardian": {
		URL: "https://content.guardianapis.com/search",
		Params: map[string]string{
			"q":           "{{.Query}}",
			"api-key":     "{{.Key}}",
			"show-fields": "trailText",
			"order-by":    "newest",
		},
		Results: map[string]string{
			"key":     "results",
			"guid":    "id",
			"date":    "webPublicationDate",
			"link":    "webUrl",
			"title":   "webTitle",
			"summary": "fields.trailText",
		},
		Auth: pipeline.Bool(true),
	},
	"rss": {
		Request: "rss",
		Filter:  None,
	},
}
