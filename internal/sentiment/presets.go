package sentiment

import (
	"net/http"

	"github.com/seenimoa/stocksense/internal/pipeline"
)

// Presets are the builtin sentiment sources.
var Presets = pipeline.Presets{
	pipeline.Default: {Request: Keyword},
	Keyword:          {Request: Keyword},
	"custom":         {},
	"indico": {
		URL:     "https://apiv2.indico.io/sentiment",
		Method:  http.MethodPost,
		Data:    `{"api_key":{{json .Key}},"data":{{json .Query}}}`,
		Results: map[string]string{"value": "results"},
		Auth:    pipeline.Bool(true),
	},
}
