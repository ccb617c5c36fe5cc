package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "websnap"

	// DefaultFilename is used for resources whose URL has no last path
	// segment, such as "http://example.com/".
	DefaultFilename = "index.html"

	// DefaultMaxDepth disables the depth limit. Depth is still recorded.
	DefaultMaxDepth = -1

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies websnap in HTTP requests.
	DefaultUserAgent = "websnap/1.0 (+https://github.com/nao1215/websnap)"

	// DefaultMaxBodySize limits the bytes kept from a single response.
	DefaultMaxBodySize = 50 * 1024 * 1024 // 50MB

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds everything a crawl needs. It is built from CLI flags and an
// optional YAML file, and is not modified once the crawl is prepared.
type Config struct {
	// URLs are the seeds, in order.
	URLs Seeds

	// Directory is the output directory. It must not exist yet.
	Directory string

	// DefaultFilename is used when no filename can be derived from a URL.
	DefaultFilename string

	// Sources are the extraction rules applied to markup.
	Sources []SourceRule

	// Recursive adds RecursiveSource to Sources so linked pages are followed.
	Recursive bool

	// MaxDepth stops discovery below resources deeper than this value.
	// Resources at MaxDepth+1 are still downloaded but not inspected.
	// A negative value means no limit.
	MaxDepth int

	// URLFilter decides which URLs are downloaded. Nil accepts everything.
	URLFilter URLFilter

	// Request holds options applied to every request.
	Request RequestOptions

	// Subdirectories groups derived filenames by extension.
	Subdirectories []Subdirectory

	// Verbose enables debug logging.
	Verbose bool

	// ProxyAddress routes requests through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes requests through it.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// DBDir is where the crawl history database lives. Empty disables history.
	DBDir string
}

// NewConfig returns a Config with default values and no seeds.
func NewConfig() *Config {
	return &Config{
		DefaultFilename:   DefaultFilename,
		Sources:           DefaultSources(),
		MaxDepth:          DefaultMaxDepth,
		URLFilter:         AcceptAll,
		TorStartupTimeout: DefaultTorStartupTimeout,
		Request: RequestOptions{
			UserAgent:   DefaultUserAgent,
			Timeout:     DefaultTimeout,
			MaxBodySize: DefaultMaxBodySize,
		},
	}
}

// XDGDataDir returns the XDG data directory for websnap.
// On Linux: ~/.local/share/websnap
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for websnap.
// On Linux: ~/.config/websnap
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration values that can be checked without
// touching the filesystem. Whether the output directory already exists is
// checked by the scraper right before the crawl.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return NewConfigError("directory", ErrNoDirectory)
	}

	if len(c.URLs) == 0 {
		return NewConfigError("urls", ErrNoURLs)
	}
	for _, seed := range c.URLs {
		if err := seed.Validate(); err != nil {
			return NewConfigError("urls", err)
		}
	}

	for _, rule := range c.Sources {
		if err := rule.Validate(); err != nil {
			return NewConfigError("sources", err)
		}
	}

	if c.Request.Timeout < 0 {
		return NewConfigError("request.timeout", ErrInvalidTimeout)
	}

	return nil
}

// Filter returns the configured URL filter, or AcceptAll.
func (c *Config) Filter() URLFilter {
	if c.URLFilter == nil {
		return AcceptAll
	}
	return c.URLFilter
}

// Filename returns the configured default filename, or DefaultFilename.
func (c *Config) Filename() string {
	if c.DefaultFilename == "" {
		return DefaultFilename
	}
	return c.DefaultFilename
}

// Clone returns a copy that shares no slices or maps with c.
func (c *Config) Clone() *Config {
	out := *c
	out.URLs = append(Seeds(nil), c.URLs...)
	out.Sources = append([]SourceRule(nil), c.Sources...)
	out.Subdirectories = append([]Subdirectory(nil), c.Subdirectories...)
	out.Request = RequestOptions{}.Merge(c.Request)
	return &out
}
