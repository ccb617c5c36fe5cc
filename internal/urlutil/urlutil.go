package urlutil

import (
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// absoluteOrProtocolRelative matches "scheme://..." and "//host/...".
var absoluteOrProtocolRelative = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.\-]*:)?//`)

// IsURL reports whether s looks like a URL (absolute or protocol-relative)
// rather than a filesystem-style path.
func IsURL(s string) bool {
	return absoluteOrProtocolRelative.MatchString(strings.TrimSpace(s))
}

// Resolve resolves ref against base and returns an absolute URL.
// A protocol-relative ref ("//cdn.example.com/a.js") takes the scheme of base.
// It returns an empty string when either URL cannot be parsed.
func Resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)

	b, err := url.Parse(base)
	if err != nil {
		return ""
	}

	if strings.HasPrefix(ref, "//") {
		scheme := b.Scheme
		if scheme == "" {
			scheme = "http"
		}
		ref = scheme + ":" + ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// Key returns the normalized form of rawURL used for cache lookups.
//
// Two URLs share a key when they agree on scheme, host and path, ignoring a
// trailing slash on the path, an empty query and the fragment. Scheme and
// host are compared case-insensitively.
func Key(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	p := strings.TrimSuffix(u.EscapedPath(), "/")

	var b strings.Builder
	if u.Scheme != "" {
		b.WriteString(strings.ToLower(u.Scheme))
		b.WriteString(":")
	}
	if u.Host != "" || u.Scheme != "" {
		b.WriteString("//")
		if u.User != nil {
			b.WriteString(u.User.String())
			b.WriteString("@")
		}
		b.WriteString(strings.ToLower(u.Host))
	}
	b.WriteString(p)
	if u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}

// Equal reports whether a and b refer to the same resource.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// NormalizeSeparators converts Windows-style separators to forward slashes.
func NormalizeSeparators(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// RelativePath returns the path of the output file to as seen from the
// directory containing the output file from. Both arguments are relative
// output filenames; the result always uses forward slashes.
func RelativePath(from, to string) string {
	from = NormalizeSeparators(from)
	to = NormalizeSeparators(to)

	dir := path.Dir(from)
	if dir == "." {
		return to
	}

	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(to))
	if err != nil {
		return to
	}
	return NormalizeSeparators(filepath.ToSlash(rel))
}

// FilenameFromURL returns the last path segment of rawURL, or an empty
// string when the path is empty or ends with a slash.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return ""
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Extension returns the lower-cased extension of the URL path, including
// the leading dot, or an empty string.
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

// Fragment returns the fragment of rawURL without the leading '#'.
func Fragment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Fragment
}

// StripFragment returns rawURL without its fragment.
func StripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// IsFetchable reports whether a reference found in a document points at
// something that can be downloaded. Scripting and inline schemes as well as
// bare fragments are not fetchable.
func IsFetchable(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return false
	}

	lower := strings.ToLower(ref)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "about:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}
