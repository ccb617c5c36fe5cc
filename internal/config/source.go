package config

// SourceRule tells the markup handler where to look for references to
// download: every element matching Selector contributes the value of
// Attribute.
type SourceRule struct {
	// Selector is a CSS selector, e.g. "img" or "link[rel=stylesheet]".
	Selector string `yaml:"selector"`

	// Attribute is the attribute holding the reference, e.g. "src".
	Attribute string `yaml:"attribute"`
}

// RecursiveSource is the rule added by the recursive option so that linked
// pages are downloaded too.
var RecursiveSource = SourceRule{Selector: "a", Attribute: "href"}

// DefaultSources returns the rules used when none are configured. They cover
// the assets a page needs to render offline.
func DefaultSources() []SourceRule {
	return []SourceRule{
		{Selector: "img", Attribute: "src"},
		{Selector: "img", Attribute: "srcset"},
		{Selector: "input", Attribute: "src"},
		{Selector: "link[rel='stylesheet']", Attribute: "href"},
		{Selector: "link[rel*='icon']", Attribute: "href"},
		{Selector: "script", Attribute: "src"},
		{Selector: "source", Attribute: "src"},
		{Selector: "source", Attribute: "srcset"},
		{Selector: "video", Attribute: "src"},
		{Selector: "video", Attribute: "poster"},
		{Selector: "audio", Attribute: "src"},
		{Selector: "track", Attribute: "src"},
	}
}

// WithRecursiveSource returns rules with RecursiveSource appended, unless an
// identical rule is already present. The input slice is not modified.
func WithRecursiveSource(rules []SourceRule) []SourceRule {
	out := make([]SourceRule, 0, len(rules)+1)
	out = append(out, rules...)
	for _, r := range rules {
		if r == RecursiveSource {
			return out
		}
	}
	return append(out, RecursiveSource)
}

// Validate checks that both fields are set.
func (r SourceRule) Validate() error {
	if r.Selector == "" || r.Attribute == "" {
		return ErrInvalidSource
	}
	return nil
}
