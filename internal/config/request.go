package config

import (
	"maps"
	"time"
)

// RequestOptions are applied to every request of a crawl.
type RequestOptions struct {
	// Headers are sent with every request. They override the defaults
	// (User-Agent excepted, see UserAgent).
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is a raw Cookie header value, e.g. "session=abc; theme=dark".
	Cookie string `yaml:"cookie,omitempty"`

	// UserAgent replaces the default User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Timeout bounds a single request. Zero means the client default.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxBodySize limits how many bytes of a response body are kept.
	// Zero means the client default.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`
}

// Merge returns o with every non-zero value of override applied on top.
// Headers are merged key by key.
func (o RequestOptions) Merge(override RequestOptions) RequestOptions {
	out := o
	out.Headers = make(map[string]string, len(o.Headers)+len(override.Headers))
	maps.Copy(out.Headers, o.Headers)
	maps.Copy(out.Headers, override.Headers)

	if override.Cookie != "" {
		out.Cookie = override.Cookie
	}
	if override.UserAgent != "" {
		out.UserAgent = override.UserAgent
	}
	if override.Timeout != 0 {
		out.Timeout = override.Timeout
	}
	if override.MaxBodySize != 0 {
		out.MaxBodySize = override.MaxBodySize
	}
	return out
}
