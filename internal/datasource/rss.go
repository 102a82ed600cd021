package datasource

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/seenimoa/stocksense/internal/pipeline"
	"github.com/seenimoa/stocksense/internal/transport"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// DefaultFeeds lists the market news feeds used when none are configured.
var DefaultFeeds = []string{
	"https://feeds.content.dowjones.io/public/rss/mw_topstories",
	"https://www.cnbc.com/id/100003114/device/rss/rss.html",
	"https://finance.yahoo.com/news/rssindex",
}

// RSS reads news from a list of RSS/Atom feeds.
type RSS struct {
	feeds   []string
	parser  *gofeed.Parser
	limiter *rate.Limiter
}

// NewRSS creates a feed reader. An empty feed list selects DefaultFeeds;
// a nil hc uses a 30s client.
func NewRSS(feeds []string, hc *http.Client) *RSS {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	p := gofeed.NewParser()
	p.Client = hc
	p.UserAgent = transport.DefaultUserAgent
	return &RSS{
		feeds:   feeds,
		parser:  p,
		limiter: rate.NewLimiter(2, 2), // conservative: 2 req/s
	}
}

// Search returns items from feeds (or the configured feeds when empty)
// that mention any word of query, newest first. An empty query keeps all.
func (r *RSS) Search(ctx context.Context, feeds []string, query string) ([]models.Document, error) {
	items, err := r.items(ctx, feeds)
	if err != nil {
		return nil, err
	}
	keywords := queryKeywords(query)
	return docs(items, func(it item) bool {
		return len(keywords) == 0 || matchesAny(it.doc.Title+" "+it.doc.Summary, keywords)
	}), nil
}

// CompanyNews implements NewsSource by keyword-matching feed items.
func (r *RSS) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.Document, error) {
	items, err := r.items(ctx, nil)
	if err != nil {
		return nil, err
	}
	keywords := tickerKeywords(symbol)
	end := to.AddDate(0, 0, 1)
	return docs(items, func(it item) bool {
		if !it.published.IsZero() && (it.published.Before(from) || !it.published.Before(end)) {
			return false
		}
		return matchesAny(it.doc.Title+" "+it.doc.Summary, keywords)
	}), nil
}

// --- Internal helpers ---

type item struct {
	doc       models.Document
	published time.Time
}

// items fetches every feed. Failed feeds are skipped; the call only fails
// when no feed could be read.
func (r *RSS) items(ctx context.Context, feeds []string) ([]item, error) {
	if len(feeds) == 0 {
		feeds = r.feeds
	}
	var all []item
	var errs []error
	for _, url := range feeds {
		got, err := r.fetchRSS(ctx, url)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, got...)
	}
	if len(all) == 0 && len(errs) > 0 {
		return nil, pipeline.TransportError("no feed could be read", errors.Join(errs...))
	}
	slices.SortStableFunc(all, func(a, b item) int {
		return cmp.Compare(b.published.Unix(), a.published.Unix())
	})
	return all, nil
}

// fetchRSS parses one feed into documents.
func (r *RSS) fetchRSS(ctx context.Context, url string) ([]item, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", url, err)
	}

	items := make([]item, 0, len(feed.Items))
	for _, it := range feed.Items {
		d := models.Document{
			GUID:        coalesce(it.GUID, it.Link),
			Link:        it.Link,
			Title:       strings.TrimSpace(it.Title),
			Summary:     cleanHTML(it.Description),
			DisplayLink: utils.HostOf(it.Link),
		}
		var published time.Time
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
			d.Date = utils.FormatLongDate(published)
		}
		items = append(items, item{doc: d, published: published})
	}
	return items, nil
}

func docs(items []item, keep func(item) bool) []models.Document {
	out := make([]models.Document, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it.doc)
		}
	}
	return out
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// tickerKeywords returns search keywords for a ticker.
// For example, "AAPL" gives ["aapl", "apple"].
func tickerKeywords(ticker string) []string {
	t := strings.ToLower(utils.NormalizeSymbol(ticker))
	keywords := []string{t}

	nameMap := map[string][]string{
		"aapl":  {"apple"},
		"msft":  {"microsoft"},
		"googl": {"alphabet", "google"},
		"goog":  {"alphabet", "google"},
		"amzn":  {"amazon"},
		"meta":  {"facebook"},
		"tsla":  {"tesla"},
		"nvda":  {"nvidia"},
		"nflx":  {"netflix"},
		"jpm":   {"jpmorgan", "jp morgan"},
		"brk.b": {"berkshire"},
		"dis":   {"disney"},
		"ibm":   {"ibm"},
		"intc":  {"intel"},
		"amd":   {"advanced micro devices"},
	}
	if extra, ok := nameMap[t]; ok {
		keywords = append(keywords, extra...)
	}
	return keywords
}

func queryKeywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return r == ' ' || r == ','
	})
	return fields
}

// matchesAny reports whether text contains any keyword as a whole word,
// ignoring case. "amd" matches "AMD shares" but not "Amdahl".
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && containsWord(lower, kw) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for off := 0; off < len(s); {
		i := strings.Index(s[off:], word)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(word)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(s) || !isWordRune(after)) {
			return true
		}
		off = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
