package stocks

import (
	"slices"
	"time"

	"github.com/seenimoa/stocksense/internal/datasource"
	"github.com/seenimoa/stocksense/internal/sentiment"
	"github.com/seenimoa/stocksense/pkg/models"
	"github.com/seenimoa/stocksense/pkg/utils"
)

// Merge reconciles the snapshot, history and news of every requested
// symbol into one record per symbol. Data keyed by symbols outside
// in.Symbols is ignored; missing data yields a partial record.
func Merge(in *datasource.Bundle, clock utils.Clock) models.StockRecords {
	out := make(models.StockRecords, len(in.Symbols))
	for _, s := range in.Symbols {
		sym := utils.NormalizeSymbol(s)
		if sym == "" {
			continue
		}
		out[sym] = &models.StockRecord{
			Symbol: sym,
			Values: []models.HistoryEntry{},
			News:   []models.Document{},
		}
	}

	for sym, bars := range in.Historical {
		if rec := out[utils.NormalizeSymbol(sym)]; rec != nil {
			rec.Values = history(bars)
		}
	}

	// "today" goes after history so it ends up last.
	for sym, snap := range in.Current {
		rec := out[utils.NormalizeSymbol(sym)]
		if rec == nil || snap == nil {
			continue
		}
		rec.Exchange = snap.Exchange
		rec.MarketState = snap.MarketState
		rec.About = snap
		rec.Values = append(rec.Values, today(snap, clock))
	}

	for sym, docs := range in.News {
		rec := out[utils.NormalizeSymbol(sym)]
		if rec == nil {
			continue
		}
		rec.News = oldestFirst(docs)
		rec.Sentiment = AggregateSentiment(rec.News)
	}
	return out
}

// history converts newest-first bars into oldest-first entries. Each
// entry's change is against the next older close; the oldest has none.
func history(bars []models.Bar) []models.HistoryEntry {
	out := make([]models.HistoryEntry, len(bars))
	for i, b := range bars {
		e := models.HistoryEntry{
			Date:          utils.FormatLongDate(b.Date),
			Volume:        b.Volume,
			Price:         models.Price{Value: b.Close, High: b.High, Low: b.Low, Adj: b.AdjClose},
			LastTradeTime: models.NotAvailable,
		}
		if i+1 < len(bars) && b.Close != 0 {
			change := utils.Round2(b.Close - bars[i+1].Close)
			e.Change = models.NewChange(change, utils.Round2(change/b.Close*100))
		}
		out[len(bars)-1-i] = e
	}
	return out
}

func today(s *models.Snapshot, clock utils.Clock) models.HistoryEntry {
	e := models.HistoryEntry{
		Date:          utils.FormatLongDate(clock.Now()),
		Volume:        s.Volume,
		Price:         s.Price,
		Change:        models.NewChange(utils.Round2(s.Change), utils.Round2(s.ChangePct)),
		LastTradeTime: tradeTime(s.LastTradeTime),
	}
	if s.Pre != nil || s.Post != nil {
		e.Extended = &models.Extended{Pre: session(s.Pre), Post: session(s.Post)}
	}
	return e
}

func session(s *models.Session) *models.ExtendedSession {
	if s == nil {
		return nil
	}
	return &models.ExtendedSession{
		Value:         s.Value,
		LastTradeTime: tradeTime(s.LastTradeTime),
		Change:        models.NewChange(utils.Round2(s.Change), utils.Round2(s.ChangePct)),
	}
}

func tradeTime(t time.Time) string {
	if t.IsZero() {
		return models.NotAvailable
	}
	return utils.FormatLongDate(t)
}

// oldestFirst returns a reversed copy of newest-first docs with dates
// reformatted and displayLink backfilled.
func oldestFirst(docs []models.Document) []models.Document {
	out := slices.Clone(docs)
	slices.Reverse(out)
	for i := range out {
		out[i].Date = utils.ReformatDate(out[i].Date)
		if out[i].DisplayLink == "" {
			out[i].DisplayLink = utils.HostOf(out[i].Link)
		}
	}
	if out == nil {
		out = []models.Document{}
	}
	return out
}

// AggregateSentiment combines the sentiment of every scored document:
// value is the mean score rounded to 2 decimals, polarity and confidence
// are derived from it. Nil when no document carries a score.
func AggregateSentiment(docs []models.Document) *models.AggregateSentiment {
	total := 0.0
	count := 0
	for _, d := range docs {
		if d.HasSentiment() {
			total += d.Sentiment.Value
			count++
		}
	}
	if count == 0 {
		return nil
	}
	v := utils.Round2(total / float64(count))
	return &models.AggregateSentiment{
		Total:      total,
		Value:      v,
		Sentiment:  sentiment.Polarity(v),
		Confidence: sentiment.Confidence(v),
		Count:      count,
	}
}
