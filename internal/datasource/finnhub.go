package datasource

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// Finnhub serves company news from the Finnhub API.
type Finnhub struct {
	client *finnhub.DefaultApiService
}

// NewFinnhub creates a Finnhub news source. baseURL and hc are optional.
func NewFinnhub(apiKey, baseURL string, hc *http.Client) *Finnhub {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	cfg.UserAgent = transport.DefaultUserAgent
	if baseURL != "" {
		cfg.Servers = finnhub.ServerConfigurations{{URL: strings.TrimRight(baseURL, "/")}}
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &Finnhub{client: finnhub.NewAPIClient(cfg).DefaultApi}
}

// CompanyNews implements NewsSource.
func (f *Finnhub) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.Document, error) {
	res, resp, err := f.client.CompanyNews(ctx).
		Symbol(symbol).
		From(from.Format(utils.DateLayout)).
		To(to.Format(utils.DateLayout)).
		Execute()
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		var apiErr finnhub.GenericOpenAPIError
		if errors.As(err, &apiErr) {
			return nil, transport.MapError(status, apiErr.Body(), err)
		}
		return nil, transport.MapError(status, nil, err)
	}

	docs := make([]models.Document, 0, len(res))
	for _, n := range res {
		link := n.GetUrl()
		if link == "" {
			continue
		}
		d := models.Document{
			GUID:        "finnhub:" + strconv.FormatInt(n.GetId(), 10),
			Link:        link,
			Title:       n.GetHeadline(),
			Summary:     n.GetSummary(),
			DisplayLink: utils.HostOf(link),
		}
		if n.GetId() == 0 {
			d.GUID = link
		}
		if ts := n.GetDatetime(); ts != 0 {
			d.Date = utils.FormatLongDate(time.Unix(ts, 0).UTC())
		}
		docs = append(docs, d)
	}
	return docs, nil
}

var _ NewsSource = (*Finnhub)(nil)

