// Package detector holds the traffic-pattern heuristics for recognizing
// Microsoft authentication activity without decrypting anything.
//
// The rules here are best-effort and tunable, not an oracle: they tolerate
// false negatives (a silent same-domain token renewal may be missed) in
// exchange for avoiding false positives from unrelated traffic.
package detector

import (
	"net/url"
	"strings"
)

// DefaultLoginHosts is the identity-provider domain set that marks a CONNECT
// tunnel as a possible login. Subdomains of each entry also match.
var DefaultLoginHosts = []string{"login.microsoftonline.com"}

// Detector evaluates observed hosts and URLs against the configured rules.
type Detector struct {
	hosts []string
}

// New creates a Detector for the given identity-provider hosts.
// An empty list falls back to DefaultLoginHosts.
func New(hosts []string) *Detector {
	if len(hosts) == 0 {
		hosts = DefaultLoginHosts
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			normalized = append(normalized, h)
		}
	}
	return &Detector{hosts: normalized}
}

// IsLoginHost reports whether host is one of the configured identity-provider
// domains or a subdomain of one. A trailing port is stripped before matching.
func (d *Detector) IsLoginHost(host string) bool {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host[i+1:], "]") {
		host = host[:i]
	}
	for _, h := range d.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// IsOAuthCallback reports whether rawURL matches the OAuth/OIDC callback
// pattern: a code= or state= query parameter, a /callback or /auth path
// segment, or an authorize endpoint.
func (d *Detector) IsOAuthCallback(rawURL string) bool {
	return hasOAuthPattern(rawURL)
}

// IsRedirectCallback reports whether a redirect response points at an OAuth
// callback: status 302 with a Location target matching the callback pattern.
func (d *Detector) IsRedirectCallback(statusCode int, location string) bool {
	return statusCode == 302 && location != "" && hasOAuthPattern(location)
}

// IsInteractiveLogin reports whether rawURL is an interactive authorization
// request: an authorize endpoint with response_type=code. Silent token
// refreshes use other response types and are deliberately not matched.
func (d *Detector) IsInteractiveLogin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !isAuthorizePath(strings.ToLower(u.Path)) {
		return false
	}
	rt := strings.ToLower(u.Query().Get("response_type"))
	return strings.Contains(rt, "code")
}

func hasOAuthPattern(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	q := u.Query()
	if q.Has("code") || q.Has("state") {
		return true
	}

	path := strings.ToLower(u.Path)
	if strings.Contains(path, "/callback") || strings.Contains(path, "/auth") {
		return true
	}
	return isAuthorizePath(path)
}

func isAuthorizePath(lowerPath string) bool {
	return strings.Contains(lowerPath, "/oauth2/v2.0/authorize") ||
		strings.Contains(lowerPath, "/oauth2/authorize")
}
