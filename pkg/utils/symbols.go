package utils

import (
	"strings"
)

// NormalizeSymbol uppercases a ticker and strips whitespace and a leading "$".
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	return strings.TrimPrefix(symbol, "$")
}

// ParseSymbols splits a comma-separated query into normalized, de-duplicated
// symbols in first-seen order. Empty entries are skipped.
func ParseSymbols(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(query, ",") {
		s := NormalizeSymbol(part)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
