package textnorm

import (
	"errors"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ErrNoContent is returned when no article text could be extracted.
var ErrNoContent = errors.New("no readable content")

// Readable extracts the main article content of raw and normalises it.
// link resolves relative references and may be empty.
func Readable(raw, link string) (string, error) {
	var page *url.URL
	if link != "" {
		if u, err := url.Parse(link); err == nil {
			page = u
		}
	}
	article, err := readability.FromReader(strings.NewReader(raw), page)
	if err != nil {
		return "", err
	}
	text := Normalize(article.TextContent, Options{})
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}
