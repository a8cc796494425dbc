package main

import (
	"net/url"
	"strings"
)

// matchCORSOrigin reports whether origin is allowed by any pattern.
// Patterns are exact origins, "*", or "scheme://*.domain" which matches any
// subdomain (at any depth) but not the bare domain.
func matchCORSOrigin(origin string, patterns []string) bool {
	o, err := url.Parse(origin)
	if err != nil || o.Scheme == "" || o.Host == "" {
		return false
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case p == "*":
			return true
		case strings.Contains(p, "://*."):
			pu, err := url.Parse(strings.Replace(p, "://*.", "://", 1))
			if err != nil || pu.Host == "" {
				continue
			}
			if o.Scheme == pu.Scheme && strings.HasSuffix(o.Host, "."+pu.Host) {
				return true
			}
		default:
			if strings.EqualFold(strings.TrimRight(p, "/"), origin) {
				return true
			}
		}
	}
	return false
}
