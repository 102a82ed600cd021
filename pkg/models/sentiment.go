package models

// Polarity is the categorical sentiment label derived from a numeric score.
type Polarity string

const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
)

// SentimentResult is the normalized output of the sentiment pipeline.
type SentimentResult struct {
	Text       string   `json:"text,omitempty"`
	Value      float64  `json:"value"`      // raw score in [0,1]
	Polarity   Polarity `json:"polarity"`   // derived from Value
	Confidence string   `json:"confidence"` // percentage, 2 decimals, e.g. "83.00"
}

// AggregateSentiment is the combined sentiment across a symbol's articles.
type AggregateSentiment struct {
	Total      float64  `json:"total"`
	Value      float64  `json:"value"` // average, 2 decimals
	Sentiment  Polarity `json:"sentiment"`
	Confidence string   `json:"confidence"`
	Count      int      `json:"count"` // articles that carried a score
}
