package reconcile

import (
	"net/url"
	"strings"
)

// redirectPolicy turns a stored redirect_url into a safe payer redirect.
// Only http(s) targets on the site host or the allow-list are followed.
type redirectPolicy struct {
	site    *url.URL
	allowed map[string]struct{}
}

func newRedirectPolicy(siteURL string, hosts []string) *redirectPolicy {
	site, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || site.Host == "" {
		site = &url.URL{Path: "/"}
	}
	p := &redirectPolicy{site: site, allowed: make(map[string]struct{}, len(hosts)+1)}
	if h := strings.ToLower(site.Hostname()); h != "" {
		p.allowed[h] = struct{}{}
	}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			p.allowed[h] = struct{}{}
		}
	}
	return p
}

func (p *redirectPolicy) Build(candidate, status, reference string) string {
	target := p.resolve(candidate)
	q := target.Query()
	q.Set("status", status)
	q.Set("reference", reference)
	target.RawQuery = q.Encode()
	return target.String()
}

func (p *redirectPolicy) resolve(candidate string) *url.URL {
	fallback := *p.site
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return &fallback
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return &fallback
	}
	if u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/") {
		return p.site.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &fallback
	}
	if _, ok := p.allowed[strings.ToLower(u.Hostname())]; !ok || u.User != nil {
		return &fallback
	}
	return u
}
