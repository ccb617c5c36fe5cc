package config

import (
	"net/url"
	"path/filepath"
	"strings"
)

// URLFilter decides whether a URL is downloaded. Rejected URLs are neither
// fetched nor reported.
type URLFilter func(rawURL string) bool

// AcceptAll is the default filter.
func AcceptAll(string) bool { return true }

// FilterRules is the declarative form of a URLFilter used in config files.
type FilterRules struct {
	// Hosts restricts downloads to these hosts (case-insensitive).
	// Empty means any host.
	Hosts []string `yaml:"hosts,omitempty"`

	// Include are glob patterns matched against the URL path.
	// If set, only URLs matching at least one pattern are downloaded.
	Include []string `yaml:"include,omitempty"`

	// Exclude are glob patterns matched against the URL path.
	// A URL matching any of them is skipped, even if it is included.
	Exclude []string `yaml:"exclude,omitempty"`
}

// IsZero reports whether no rule is set.
func (f FilterRules) IsZero() bool {
	return len(f.Hosts) == 0 && len(f.Include) == 0 && len(f.Exclude) == 0
}

// Build turns the rules into a URLFilter.
//
//  1. A URL that cannot be parsed is rejected.
//  2. A URL whose host is not in Hosts (when set) is rejected.
//  3. A URL whose path matches any Exclude pattern is rejected.
//  4. When Include is set, the path must match at least one pattern.
func (f FilterRules) Build() URLFilter {
	if f.IsZero() {
		return AcceptAll
	}

	hosts := make(map[string]bool, len(f.Hosts))
	for _, h := range f.Hosts {
		hosts[strings.ToLower(h)] = true
	}
	include := append([]string(nil), f.Include...)
	exclude := append([]string(nil), f.Exclude...)

	return func(rawURL string) bool {
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}

		if len(hosts) > 0 && !hosts[strings.ToLower(u.Hostname())] && !hosts[strings.ToLower(u.Host)] {
			return false
		}

		p := u.Path
		if p == "" {
			p = "/"
		}

		for _, pattern := range exclude {
			if matchPattern(pattern, p) {
				return false
			}
		}

		if len(include) == 0 {
			return true
		}
		for _, pattern := range include {
			if matchPattern(pattern, p) {
				return true
			}
		}
		return false
	}
}

// matchPattern reports whether a URL path matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use filepath.Match, first on the whole path and, for
//     patterns without a slash, on the last segment
func matchPattern(pattern, p string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	if matched, err := filepath.Match(pattern, p); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}
