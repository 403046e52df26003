// Package parser holds pure text normalization used by the extractors.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	priceRe      = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)*`)

	// a 3-letter code only counts as a currency when it sits next to a
	// number, otherwise any short word in surrounding text would match
	currencyBeforeRe = regexp.MustCompile(`\b([A-Z]{3})\s*[0-9]`)
	currencyAfterRe  = regexp.MustCompile(`[0-9][0-9.,]*\s*([A-Z]{3})\b`)
)

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// CleanText collapses runs of whitespace and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ParsePrice extracts the first price-looking number from free text and
// normalizes it to a dot-decimal string. ok is false when no finite number
// could be extracted.
func ParsePrice(s string) (string, bool) {
	match := priceRe.FindString(s)
	if match == "" {
		return "", false
	}

	normalized := normalizeDecimal(match)
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return "", false
	}
	return normalized, true
}

// normalizeDecimal turns "1.299,00" or "1,299.00" into "1299.00". When only
// one separator kind is present it is treated as the decimal point unless it
// repeats or is followed by exactly three digits: "1,299" is a grouped
// thousand, not one-point-two-nine-nine. Storefront prices carry one or two
// decimal places, never three.
func normalizeDecimal(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	decimal := byte(0)
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			decimal = '.'
		} else {
			decimal = ','
		}
	case lastDot >= 0 && strings.Count(s, ".") == 1 && len(s)-lastDot-1 != 3:
		decimal = '.'
	case lastComma >= 0 && strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		decimal = ','
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == decimal && i == strings.LastIndexByte(s, decimal):
			b.WriteByte('.')
		}
	}
	return b.String()
}

// ParseCurrency extracts a 3-letter currency code or a known currency symbol
// from free text, upper-cased. Returns "" when nothing matches.
func ParseCurrency(s string) string {
	upper := strings.ToUpper(s)
	if m := currencyAfterRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	if m := currencyBeforeRe.FindStringSubmatch(upper); m != nil {
		return m[1]
	}
	for symbol, code := range currencySymbols {
		if strings.Contains(s, symbol) {
			return code
		}
	}
	return ""
}

// NormalizeAvailability reduces a path-like status string to its last
// segment: "http://schema.org/InStock" -> "InStock". Plain tokens pass
// through unchanged.
func NormalizeAvailability(s string) string {
	s = strings.TrimSpace(strings.TrimRight(s, "/"))
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}

// StripHTML renders markup down to its text content.
func StripHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanText(html)
	}
	return CleanText(doc.Text())
}

// ParseFloat parses a finite float out of s, tolerating surrounding text.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	value, err := strconv.ParseFloat(s, 64)
	if err == nil {
		if math.IsInf(value, 0) || math.IsNaN(value) {
			return 0, false
		}
		return value, true
	}
	match := priceRe.FindString(s)
	if match == "" {
		return 0, false
	}
	value, err = strconv.ParseFloat(normalizeDecimal(match), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

// ParseInt parses a non-negative integer, tolerating grouped digits such as
// "1,204 reviews".
func ParseInt(s string) (int, bool) {
	value, ok := ParseFloat(s)
	if !ok || value < 0 {
		return 0, false
	}
	return int(value), true
}
