package model

// OutputObject is the externally reported view of a loaded resource and
// everything discovered from it.
type OutputObject struct {
	// URL is the absolute URL the resource was fetched from.
	URL string `json:"url"`

	// Filename is the path of the saved file relative to the output directory.
	Filename string `json:"filename"`

	// Type is the classified content type.
	Type ResourceType `json:"type"`

	// StatusCode is the HTTP status the server answered with.
	StatusCode int `json:"status_code,omitempty"`

	// Assets are the output objects of the discovered children.
	Assets []*OutputObject `json:"assets"`
}

// NewOutputObject converts the resource graph rooted at r into a tree.
//
// Assets are de-duplicated by resource identity: a shared resource that a
// page references several times is listed once under that page. A resource
// reached again while it is already being expanded higher up the same branch
// (a cycle through the cache, e.g. two pages linking to each other) is
// reported without assets so the tree stays finite.
func NewOutputObject(r *Resource) *OutputObject {
	if r == nil {
		return nil
	}
	return buildOutputObject(r, make(map[*Resource]bool))
}

func buildOutputObject(r *Resource, ancestors map[*Resource]bool) *OutputObject {
	obj := &OutputObject{
		URL:        r.URL(),
		Filename:   r.Filename(),
		Type:       r.Type(),
		StatusCode: r.StatusCode(),
		Assets:     make([]*OutputObject, 0),
	}

	if ancestors[r] {
		return obj
	}
	ancestors[r] = true
	defer delete(ancestors, r)

	seen := make(map[*Resource]bool)
	for _, child := range r.Children() {
		if child == nil || seen[child] {
			continue
		}
		seen[child] = true
		obj.Assets = append(obj.Assets, buildOutputObject(child, ancestors))
	}

	return obj
}

// Count returns the number of objects in the tree rooted at o, o included.
func (o *OutputObject) Count() int {
	if o == nil {
		return 0
	}
	n := 1
	for _, a := range o.Assets {
		n += a.Count()
	}
	return n
}

// Walk calls fn for o and every asset below it, depth first, passing the
// nesting level (0 for o).
func (o *OutputObject) Walk(fn func(obj *OutputObject, level int)) {
	o.walk(fn, 0)
}

func (o *OutputObject) walk(fn func(obj *OutputObject, level int), level int) {
	if o == nil {
		return
	}
	fn(o, level)
	for _, a := range o.Assets {
		a.walk(fn, level+1)
	}
}
