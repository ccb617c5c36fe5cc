package model

import "sync"

// Resource is one crawled item: a URL, the file it is saved to, its content
// and the resources discovered in it.
//
// Resources form a graph rather than a tree. The same URL reached from
// several parents resolves to one shared *Resource owned by the scraper's
// cache; a parent only keeps pointers to its children.
//
// A Resource is safe for concurrent use. The URL and depth are fixed at
// construction; everything else is filled in while the resource is loaded.
type Resource struct {
	url   string
	depth int

	mu          sync.RWMutex
	filename    string
	typ         ResourceType
	content     []byte
	fetched     bool
	statusCode  int
	contentType string
	children    []*Resource
}

// NewResource creates a seed resource (depth 0). filename may be empty, in
// which case it is derived when the resource is fetched.
func NewResource(url, filename string) *Resource {
	return &Resource{
		url:      url,
		filename: filename,
	}
}

// NewChild creates a resource discovered in r, one level deeper.
func (r *Resource) NewChild(url string) *Resource {
	return &Resource{
		url:   url,
		depth: r.depth + 1,
	}
}

// URL returns the absolute URL of the resource.
func (r *Resource) URL() string {
	return r.url
}

// Depth returns the number of discovery hops from the nearest seed.
func (r *Resource) Depth() int {
	return r.depth
}

// Filename returns the output path relative to the mirror directory.
func (r *Resource) Filename() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filename
}

// SetFilename assigns the output path.
func (r *Resource) SetFilename(filename string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filename = filename
}

// Type returns the classified type, TypeUnknown before the fetch.
func (r *Resource) Type() ResourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.typ
}

// SetType records the classified type.
func (r *Resource) SetType(t ResourceType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typ = t
}

// Content returns the current content. Callers must not modify the
// returned slice; use SetContent to replace it.
func (r *Resource) Content() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.content
}

// SetContent replaces the content.
func (r *Resource) SetContent(content []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
}

// SetResponse stores what the transport returned for this resource.
func (r *Resource) SetResponse(content []byte, contentType string, statusCode int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
	r.contentType = contentType
	r.statusCode = statusCode
	r.fetched = true
}

// Fetched reports whether a response has been stored.
func (r *Resource) Fetched() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fetched
}

// StatusCode returns the HTTP status of the response, 0 before the fetch.
func (r *Resource) StatusCode() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusCode
}

// ContentType returns the Content-Type reported by the server.
func (r *Resource) ContentType() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contentType
}

// AddChild appends a discovered resource.
func (r *Resource) AddChild(child *Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children = append(r.children, child)
}

// Children returns a copy of the discovered resources in document order.
func (r *Resource) Children() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Resource, len(r.children))
	copy(out, r.children)
	return out
}
