// Package urls makes scraped links absolute and unwraps the outbound
// redirect links of price comparison sites.
package urls

import (
	"net/url"
	"strings"
)

// Resolver knows the origin and redirect conventions of one site.
type Resolver struct {
	// Origin is the scheme and host relative links are joined against.
	Origin string
	// DomainMarker is contained in every host of the site's domain family,
	// e.g. "idealo.".
	DomainMarker string
	// OwnSuffixes are additional host suffixes belonging to the site.
	OwnSuffixes []string
	// RedirectPaths are path fragments of the site's redirect routes.
	RedirectPaths []string
	// TargetParams are query parameters carrying the real target, in
	// priority order.
	TargetParams []string
}

// ToAbsolute joins raw against base unless raw already has a scheme. It
// returns "" for empty or unparseable input.
func ToAbsolute(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return raw
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(ref).String()
}

// ExtractHost returns the lowercase hostname of raw without a leading "www.".
func ExtractHost(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// ToAbsolute joins raw against the resolver's origin.
func (r *Resolver) ToAbsolute(raw string) string {
	return ToAbsolute(raw, r.Origin)
}

// ResolveRedirect returns the target of one of the site's redirect links.
// Any other URL, or a redirect without a known target parameter, comes back
// unchanged.
func (r *Resolver) ResolveRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if r.DomainMarker == "" || !strings.Contains(strings.ToLower(u.Host), r.DomainMarker) {
		return raw
	}
	if !r.isRedirectPath(u.Path) {
		return raw
	}

	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return raw
	}
	for _, key := range r.TargetParams {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if decoded, err := url.PathUnescape(v); err == nil {
			return decoded
		}
		return v
	}
	return raw
}

// Resolve makes raw absolute, unwraps a redirect and makes the target
// absolute again.
func (r *Resolver) Resolve(raw string) string {
	abs := r.ToAbsolute(raw)
	if abs == "" {
		return ""
	}
	return r.ToAbsolute(r.ResolveRedirect(abs))
}

// IsOwnHost reports whether host belongs to the site's own domain family.
func (r *Resolver) IsOwnHost(host string) bool {
	host = strings.ToLower(host)
	if r.DomainMarker != "" && strings.Contains(host, r.DomainMarker) {
		return true
	}
	for _, suffix := range r.OwnSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func (r *Resolver) isRedirectPath(path string) bool {
	for _, p := range r.RedirectPaths {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
