// Package security builds the Content-Security-Policy for served pages and
// binds inline <script> and <style> tags to the per-response CSP nonce.
//
// Nonce generation and the CSP response header are delegated to
// github.com/unrolled/secure: the policy template carries the NoncePlaceholder
// and secure substitutes a fresh nonce for every response. InjectNonce then
// writes that same value into the HTML body.
package security

import (
	"strings"
)

// NoncePlaceholder is replaced by secure with 'nonce-<value>' on every
// response.
const NoncePlaceholder = "$NONCE"

// cspDirective is a CSP fetch or document directive name.
type cspDirective string

const (
	cspDefaultSrc     cspDirective = "default-src"
	cspScriptSrc      cspDirective = "script-src"
	cspStyleSrc       cspDirective = "style-src"
	cspImgSrc         cspDirective = "img-src"
	cspConnectSrc     cspDirective = "connect-src"
	cspObjectSrc      cspDirective = "object-src"
	cspBaseURI        cspDirective = "base-uri"
	cspFrameAncestors cspDirective = "frame-ancestors"
)

// PolicyOptions lists the third-party origins a page may use.
type PolicyOptions struct {
	// CDNOrigins may serve non-inline scripts and stylesheets.
	CDNOrigins []string
	// ConnectOrigins may be reached by fetch/XHR from page scripts. It must
	// include every provider endpoint origin.
	ConnectOrigins []string
}

// BuildPolicy returns the CSP template for served pages. Inline scripts and
// styles are allowed only with the response nonce. The result still contains
// NoncePlaceholder and is meant for Headers.
func BuildPolicy(opts PolicyOptions) string {
	directives := []struct {
		name    cspDirective
		sources []string
	}{
		{cspDefaultSrc, []string{"'self'"}},
		{cspScriptSrc, join([]string{"'self'", NoncePlaceholder}, opts.CDNOrigins)},
		{cspStyleSrc, join([]string{"'self'", NoncePlaceholder}, opts.CDNOrigins)},
		// data: for inline icons, https: for remote avatars and images.
		{cspImgSrc, []string{"'self'", "data:", "https:"}},
		{cspConnectSrc, join([]string{"'self'"}, opts.ConnectOrigins)},
		{cspObjectSrc, []string{"'none'"}},
		{cspBaseURI, []string{"'self'"}},
		{cspFrameAncestors, []string{"'none'"}},
	}

	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, string(d.name)+" "+strings.Join(d.sources, " "))
	}
	return strings.Join(parts, "; ")
}

// join appends extra to base, skipping blanks and duplicates.
func join(base []string, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range extra {
		s = strings.TrimSpace(strings.TrimRight(s, "/"))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
