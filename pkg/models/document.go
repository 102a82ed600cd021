// Package models defines the core data structures used throughout stocksense.
package models

// Document represents a single news article flowing through the news and
// stocks pipelines.
type Document struct {
	GUID        string           `json:"guid"`
	Date        string           `json:"date,omitempty"` // formatted, e.g. "Tue, Oct 13, 2026 9:30 AM"
	Link        string           `json:"link"`
	Title       string           `json:"title"`
	Summary     string           `json:"summary,omitempty"`
	Body        string           `json:"body,omitempty"` // empty until the body stage runs
	DisplayLink string           `json:"displayLink,omitempty"`
	Sentiment   *SentimentResult `json:"sentiment,omitempty"` // nil until attached by the aggregator
}

// HasSentiment reports whether a sentiment score has been attached.
func (d Document) HasSentiment() bool {
	return d.Sentiment != nil
}
