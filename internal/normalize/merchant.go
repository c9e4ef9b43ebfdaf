package normalize

import (
	"regexp"
	"strings"
)

// genericTokens never identify a merchant on their own.
var genericTokens = map[string]struct{}{
	"de": {}, "com": {}, "net": {}, "org": {}, "eu": {}, "uk": {}, "us": {}, "ca": {}, "au": {},
	"media": {}, "shop": {}, "store": {}, "market": {}, "mall": {}, "direct": {}, "direkt": {},
	"online": {}, "web": {}, "site": {}, "portal": {}, "center": {}, "group": {}, "corp": {},
	"inc": {}, "ltd": {}, "gmbh": {}, "ag": {}, "kg": {}, "co": {}, "llc": {},
}

var (
	merchantSeparators = []string{".", "-", "_", " "}
	domainToken        = regexp.MustCompile(`[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// IsGenericToken reports whether tok is a country, legal-entity or marketing
// token.
func IsGenericToken(tok string) bool {
	_, ok := genericTokens[tok]
	return ok
}

// Merchant canonicalizes a shop name or host into a lowercase identifier,
// e.g. "www.Example-Shop.de" becomes "example".
//
// Each separator is applied in turn to the value left by the previous one, so
// the result contains no separator that still splits off a useful token.
// That makes Merchant idempotent.
func Merchant(raw string) string {
	m := strings.ToLower(strings.TrimSpace(raw))
	m = strings.TrimPrefix(m, "www.")
	if m == "" {
		return ""
	}

	for _, sep := range merchantSeparators {
		if !strings.Contains(m, sep) {
			continue
		}
		for _, part := range strings.Split(m, sep) {
			part = strings.TrimSpace(part)
			if part != "" && !IsGenericToken(part) {
				m = part
				break
			}
		}
	}

	if IsGenericToken(m) {
		return ""
	}
	return m
}

// MerchantFromAlt extracts a merchant from a logo alt text like
// "Cheapgear.com - Shop bewertungen". A domain in the text wins over the
// plain name.
func MerchantFromAlt(alt string) string {
	if alt == "" {
		return ""
	}
	name, _, _ := strings.Cut(alt, " - ")
	name = strings.TrimSpace(name)
	if dom := domainToken.FindString(name); dom != "" {
		name = dom
	}
	return Merchant(name)
}
