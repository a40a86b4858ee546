// Package normalize converts localized magnitude strings and relative or
// absolute timestamp labels into canonical numeric/temporal values. All
// functions are pure and never return an error: unparseable input degrades
// to a zero value or to the original string.
package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Labels that pages prepend to engagement counts ("转发 12", "评论 3.4万").
var noiseTokens = []string{"转发", "评论", "赞", "阅读", "讨论", "原创"}

// ParseMagnitude converts a Chinese magnitude string to an integer.
// "12.5万" becomes 125000 and "3亿" becomes 300000000; plain decimals are
// parsed as-is. Unparseable input yields 0.
func ParseMagnitude(text string) int64 {
	s := strings.TrimSpace(text)
	for _, tok := range noiseTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	switch {
	case strings.Contains(s, "亿"):
		return scaled(strings.ReplaceAll(s, "亿", ""), 100_000_000)
	case strings.Contains(s, "万"):
		return scaled(strings.ReplaceAll(s, "万", ""), 10_000)
	}

	// Fallback: keep only digits and the decimal point, then parse.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return scaled(b.String(), 1)
}

// ExtractDigits concatenates every digit character in the string and parses
// the result as an integer. "爆 1234567" becomes 1234567. Returns 0 when the
// string has no digits or the digit run does not fit in an int64.
func ExtractDigits(text string) int64 {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func scaled(s string, factor int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// Round instead of truncating so "2.3万" scales to exactly 23000.
	return int64(math.Round(f * float64(factor)))
}
