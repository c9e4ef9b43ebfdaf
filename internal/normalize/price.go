// Package normalize converts raw text fragments scraped from product pages
// into canonical values. Every function is total: bad input yields "".
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	leadingQuantifier = regexp.MustCompile(`(?i)^\s*(?:ab|ao|from|starting\s+at)\b\s*`)
	inlineQuantifier  = regexp.MustCompile(`(?i)\b(?:ab|ao|from)\b\s*`)
	listingPriceHint  = regexp.MustCompile(`(?i)\b(?:ab|ao)\s*([\d.,]+)\s*€`)

	decimalComma  = regexp.MustCompile(`\d[\d.]*,\d{2}`)
	thousandsDots = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+\b`)
	decimalDot    = regexp.MustCompile(`\d+\.\d{2}\b`)
	wholeNumber   = regexp.MustCompile(`\d+`)

	whitespace = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\t", " ", "\n", " ", "\r", " ")
)

// Price turns a raw price fragment such as "ab 1.299,00 €" into a decimal
// string with two fractional digits ("1299.00").
func Price(raw string) string {
	s := whitespace.Replace(raw)
	s = leadingQuantifier.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var digits string
	switch {
	case decimalComma.MatchString(s):
		m := decimalComma.FindString(s)
		digits = strings.ReplaceAll(strings.ReplaceAll(m, ".", ""), ",", ".")
	case thousandsDots.MatchString(s):
		digits = strings.ReplaceAll(thousandsDots.FindString(s), ".", "")
	case decimalDot.MatchString(s):
		digits = decimalDot.FindString(s)
	case wholeNumber.MatchString(s):
		digits = wholeNumber.FindString(s)
	default:
		return ""
	}

	d, err := decimal.NewFromString(digits)
	if err != nil {
		return digits
	}
	return d.StringFixedBank(2)
}

// StripDiscountPrefix removes "ab"/"from" markers but keeps the rest of the
// text, including the currency sign.
func StripDiscountPrefix(raw string) string {
	if raw == "" {
		return ""
	}
	s := leadingQuantifier.ReplaceAllString(raw, "")
	s = inlineQuantifier.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ListingPriceHint finds an "ab 199,00 €" marker in listing text and returns
// it as "199,00 €", or "" when there is none.
func ListingPriceHint(text string) string {
	m := listingPriceHint.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + " €"
}

// DiscountRate returns the markdown of discounted against original as a
// percentage with two decimals, e.g. "25.13%".
func DiscountRate(original, discounted string) string {
	o, ok := parseAmount(original)
	if !ok || o <= 0 {
		return ""
	}
	d, ok := parseAmount(discounted)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.2f%%", (o-d)/o*100)
}

func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// CollapseText trims s and folds runs of whitespace into single spaces.
func CollapseText(s string) string {
	return strings.Join(strings.Fields(whitespace.Replace(s)), " ")
}
