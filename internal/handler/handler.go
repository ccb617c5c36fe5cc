package handler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/websnap/internal/config"
	"github.com/nao1215/websnap/internal/model"
	"github.com/nao1215/websnap/internal/urlutil"
)

// Context is the part of the scraper a handler needs.
type Context interface {
	// LoadResource loads r, or returns the cached resource with the same
	// URL. It returns nil without error when the URL filter rejects r.
	LoadResource(ctx context.Context, r *model.Resource) (*model.Resource, error)

	// Sources returns the extraction rules for HTML documents.
	Sources() []config.SourceRule
}

// Handler discovers the children of a resource.
type Handler interface {
	// Name identifies the handler in logs.
	Name() string

	// Handle loads the children referenced by content, attaches them to r
	// in document order and returns content with the references localized.
	Handle(ctx context.Context, hc Context, r *model.Resource, content []byte) ([]byte, error)
}

var registry = map[model.ResourceType][]Handler{
	model.TypeCSS:  {CSS{}},
	model.TypeHTML: {CSS{}, HTML{}},
}

// For returns the handlers for resources of type t. Types without child
// discovery get none.
func For(t model.ResourceType) []Handler {
	return registry[t]
}

// Bound is a handler sequence bound to one resource and scraper.
type Bound struct {
	hc       Context
	r        *model.Resource
	handlers []Handler
}

// Bind binds handlers to r. A Bound without handlers is a no-op.
func Bind(hc Context, r *model.Resource, handlers ...Handler) Bound {
	return Bound{hc: hc, r: r, handlers: handlers}
}

// Names returns the handler names in execution order.
func (b Bound) Names() []string {
	names := make([]string, len(b.handlers))
	for i, h := range b.handlers {
		names[i] = h.Name()
	}
	return names
}

// Noop reports whether running b leaves the resource untouched.
func (b Bound) Noop() bool {
	return len(b.handlers) == 0
}

// Run passes content through every handler in sequence and returns the
// final content.
func (b Bound) Run(ctx context.Context, content []byte) ([]byte, error) {
	for _, h := range b.handlers {
		out, err := h.Handle(ctx, b.hc, b.r, content)
		if err != nil {
			return nil, fmt.Errorf("%s handler for %s: %w", h.Name(), b.r.URL(), err)
		}
		content = out
	}
	return content, nil
}

// reference is a fetchable URL found in a document.
type reference struct {
	// url is absolute and has no fragment.
	url string
	// fragment is appended to the localized path.
	fragment string
}

// resolveReference turns raw, as found in a document with base URL base,
// into a reference. Non-HTTP and inline references are rejected.
func resolveReference(base, raw string) (reference, bool) {
	if !urlutil.IsFetchable(raw) {
		return reference{}, false
	}

	abs := urlutil.Resolve(base, raw)
	if abs == "" {
		return reference{}, false
	}

	u, err := url.Parse(abs)
	if err != nil || u.Host == "" {
		return reference{}, false
	}
	if scheme := strings.ToLower(u.Scheme); scheme != "http" && scheme != "https" {
		return reference{}, false
	}

	fragment := u.Fragment
	u.Fragment = ""
	u.RawFragment = ""
	return reference{url: u.String(), fragment: fragment}, true
}

// loadChildren loads every distinct reference of parent concurrently. All
// attempts are awaited; the first error is returned after the others
// finished. Loaded children are attached to parent in the order of refs,
// and the returned map resolves a reference URL to its child.
func loadChildren(ctx context.Context, hc Context, parent *model.Resource, refs []reference) (map[string]*model.Resource, error) {
	var urls []string
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		key := urlutil.Key(ref.url)
		if seen[key] {
			continue
		}
		seen[key] = true
		urls = append(urls, ref.url)
	}

	children := make([]*model.Resource, len(urls))
	var g errgroup.Group
	for i, u := range urls {
		g.Go(func() error {
			child, err := hc.LoadResource(ctx, parent.NewChild(u))
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	err := g.Wait()

	byKey := make(map[string]*model.Resource, len(urls))
	for i, child := range children {
		if child == nil {
			continue
		}
		parent.AddChild(child)
		byKey[urlutil.Key(urls[i])] = child
	}
	return byKey, err
}

// localize returns the path that replaces ref inside parent, or false when
// ref was not loaded.
func localize(parent *model.Resource, loaded map[string]*model.Resource, ref reference) (string, bool) {
	child, ok := loaded[urlutil.Key(ref.url)]
	if !ok || child.Filename() == "" {
		return "", false
	}

	rel := urlutil.RelativePath(parent.Filename(), child.Filename())
	if ref.fragment != "" {
		rel += "#" + ref.fragment
	}
	return rel, true
}
