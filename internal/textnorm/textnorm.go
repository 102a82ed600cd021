// Package textnorm turns raw article HTML into plain narrative text.
package textnorm

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultSelector is used in full mode when no selector is configured.
const DefaultSelector = "body"

// SummaryLength is the number of characters kept by Summary.
const SummaryLength = 100

// maxPasses bounds the fixed-point loop in Normalize.
const maxPasses = 4

var (
	reImg    = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	reLink   = regexp.MustCompile(`(?is)<a\b[^>]*>.*?</a\s*>`)
	reStyle  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	reScript = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	reTag    = regexp.MustCompile(`(?s)<[^>]*>`)

	reSpace      = regexp.MustCompile(`[\s\p{Z}]+`)
	reSpacePunct = regexp.MustCompile(`[\s\p{Z}]+([,.;:!?])`)
	rePunctRun   = regexp.MustCompile(`[,.]{2,}`)

	strict = bluemonday.StrictPolicy()
)

// blocks become line breaks when linearising full documents.
const blocks = "address, article, aside, blockquote, br, dd, div, dl, dt, figcaption, figure, footer, " +
	"h1, h2, h3, h4, h5, h6, header, hr, li, main, nav, ol, p, pre, section, table, tr, td, th, ul"

// Options control Normalize.
type Options struct {
	// Full linearises the document and decodes entities.
	Full bool
	// Selector picks the content root in full mode.
	Selector string
}

// Normalize strips images, links, styles and scripts with their content,
// removes all remaining markup and tidies whitespace and punctuation. It is
// applied until the output stops changing, so Normalize(Normalize(x)) ==
// Normalize(x).
func Normalize(raw string, opts Options) string {
	out := pass(raw, opts)
	for i := 1; i < maxPasses; i++ {
		next := pass(out, opts)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// Text is Normalize in full mode with the default selector.
func Text(raw string) string {
	return Normalize(raw, Options{Full: true})
}

func pass(s string, opts Options) string {
	s = stripLinks(s)
	if opts.Full {
		s = linearise(s, opts.Selector)
		s = html.UnescapeString(strict.Sanitize(s))
	}
	s = reTag.ReplaceAllString(s, "")
	return tidy(s)
}

func stripLinks(s string) string {
	s = reImg.ReplaceAllString(s, "")
	s = reLink.ReplaceAllString(s, "")
	s = reStyle.ReplaceAllString(s, "")
	return reScript.ReplaceAllString(s, "")
}

// linearise selects the content root and returns its text with block
// elements separated by newlines. Entities are decoded by the parser.
func linearise(s, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	if selector == "" {
		selector = DefaultSelector
	}
	root := doc.Find(selector)
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find(blocks).Each(func(_ int, b *goquery.Selection) {
		b.BeforeHtml("\n")
		b.AppendHtml("\n")
	})

	parts := make([]string, 0, root.Length())
	root.Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, sel.Text())
	})
	return strings.Join(parts, "\n")
}

func tidy(s string) string {
	s = reSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = reSpacePunct.ReplaceAllString(s, "$1")
	s = rePunctRun.ReplaceAllStringFunc(s, func(run string) string {
		if strings.Contains(run, ".") {
			return "."
		}
		return ","
	})
	return strings.ReplaceAll(s, `\'`, "'")
}

// Summary returns the first SummaryLength characters of text. The cut is
// not aligned to words or sentences.
func Summary(text string) string {
	r := []rune(text)
	if len(r) <= SummaryLength {
		return text
	}
	return string(r[:SummaryLength])
}
