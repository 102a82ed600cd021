// Package utils provides common utility functions for stocksense.
package utils

import (
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// LongDateLayout renders dates like "Tue, Oct 13, 2026 9:30 AM".
const LongDateLayout = "Mon, Jan 2, 2006 3:04 PM"

// FormatLongDate formats t with LongDateLayout.
func FormatLongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}

// ReformatDate parses a provider date in any common layout and returns it in
// LongDateLayout. Unparseable input is returned unchanged.
func ReformatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if _, err := time.Parse(LongDateLayout, raw); err == nil {
		return raw
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return raw
	}
	return FormatLongDate(t)
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

// Fixed2 formats f with exactly 2 decimal places.
func Fixed2(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

// HostOf returns the host part of link, e.g. "www.example.com" for
// "https://www.example.com/a/b". Scheme-less links are accepted.
func HostOf(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "://") {
		link = "http://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Host
}
