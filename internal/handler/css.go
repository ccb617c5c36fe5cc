package handler

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/websnap/internal/model"
)

// cssReferencePattern matches url(...) with any quoting and the string form
// of @import. "@import url(...)" is caught by the url alternative.
//
// Groups: 1 url("..."), 2 url('...'), 3 url(...), 4 @import "...",
// 5 @import '...'.
var cssReferencePattern = regexp.MustCompile(
	`(?i)url\(\s*(?:"([^"]*)"|'([^']*)'|([^)"'\s]*))\s*\)|@import\s+(?:"([^"]*)"|'([^']*)')`,
)

// cssCommentPattern matches comments. An unterminated comment runs to the
// end of the stylesheet.
var cssCommentPattern = regexp.MustCompile(`(?s)/\*.*?(?:\*/|$)`)

// cssMatch is one reference inside a stylesheet.
type cssMatch struct {
	start, end int
	raw        string
	quote      string
	importRule bool
}

func scanCSS(css string) []cssMatch {
	comments := cssCommentPattern.FindAllStringIndex(css, -1)

	var matches []cssMatch
	for _, m := range cssReferencePattern.FindAllStringSubmatchIndex(css, -1) {
		if insideSpan(comments, m[0]) {
			continue
		}
		for g := 1; g <= 5; g++ {
			if m[2*g] < 0 {
				continue
			}
			cm := cssMatch{
				start:      m[0],
				end:        m[1],
				raw:        css[m[2*g]:m[2*g+1]],
				importRule: g >= 4,
			}
			switch g {
			case 1, 4:
				cm.quote = `"`
			case 2, 5:
				cm.quote = `'`
			}
			matches = append(matches, cm)
			break
		}
	}
	return matches
}

// insideSpan reports whether pos lies in one of the sorted [start, end) spans.
func insideSpan(spans [][]int, pos int) bool {
	for _, sp := range spans {
		if pos < sp[0] {
			return false
		}
		if pos < sp[1] {
			return true
		}
	}
	return false
}

// rewriteCSS replaces every match for which replace returns true.
func rewriteCSS(css string, matches []cssMatch, replace func(raw string) (string, bool)) (string, bool) {
	var b strings.Builder
	last := 0
	changed := false
	for _, m := range matches {
		repl, ok := replace(m.raw)
		if !ok {
			continue
		}
		b.WriteString(css[last:m.start])
		if m.importRule {
			b.WriteString("@import " + m.quote + repl + m.quote)
		} else {
			b.WriteString("url(" + m.quote + repl + m.quote + ")")
		}
		last = m.end
		changed = true
	}
	if !changed {
		return css, false
	}
	b.WriteString(css[last:])
	return b.String(), true
}

// CSS localizes url() and @import references. In a stylesheet it works on
// the whole content; in an HTML document it works on <style> elements and
// style attributes.
type CSS struct{}

// Name implements Handler.
func (CSS) Name() string { return "css" }

// Handle implements Handler.
func (c CSS) Handle(ctx context.Context, hc Context, r *model.Resource, content []byte) ([]byte, error) {
	if r.Type() == model.TypeHTML {
		return c.handleHTML(ctx, hc, r, content)
	}

	css := string(content)
	matches := scanCSS(css)
	refs := cssReferences(r.URL(), matches)
	if len(refs) == 0 {
		return content, nil
	}

	loaded, err := loadChildren(ctx, hc, r, refs)
	if err != nil {
		return nil, err
	}

	out, changed := rewriteCSS(css, matches, localizer(r, r.URL(), loaded))
	if !changed {
		return content, nil
	}
	return []byte(out), nil
}

func (CSS) handleHTML(ctx context.Context, hc Context, r *model.Resource, content []byte) ([]byte, error) {
	lower := bytes.ToLower(content)
	if !bytes.Contains(lower, []byte("<style")) && !bytes.Contains(lower, []byte("style=")) {
		return content, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	base := documentBase(doc, r.URL())

	type block struct {
		sel     *goquery.Selection
		attr    bool
		css     string
		matches []cssMatch
	}

	var blocks []block
	var refs []reference
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		css := s.Text()
		matches := scanCSS(css)
		if len(matches) == 0 {
			return
		}
		blocks = append(blocks, block{sel: s, css: css, matches: matches})
		refs = append(refs, cssReferences(base, matches)...)
	})
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		css, _ := s.Attr("style")
		matches := scanCSS(css)
		if len(matches) == 0 {
			return
		}
		blocks = append(blocks, block{sel: s, attr: true, css: css, matches: matches})
		refs = append(refs, cssReferences(base, matches)...)
	})
	if len(refs) == 0 {
		return content, nil
	}

	loaded, err := loadChildren(ctx, hc, r, refs)
	if err != nil {
		return nil, err
	}

	replace := localizer(r, base, loaded)
	changed := false
	for _, b := range blocks {
		out, ok := rewriteCSS(b.css, b.matches, replace)
		if !ok {
			continue
		}
		changed = true
		if b.attr {
			b.sel.SetAttr("style", out)
		} else {
			// <style> is raw text; SetText would escape quotes and ">".
			b.sel.Empty()
			b.sel.AppendNodes(&html.Node{Type: html.TextNode, Data: out})
		}
	}
	if !changed {
		return content, nil
	}

	rendered, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(rendered), nil
}

func cssReferences(base string, matches []cssMatch) []reference {
	var refs []reference
	for _, m := range matches {
		if ref, ok := resolveReference(base, m.raw); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

// localizer returns a replace function mapping raw references to local paths.
func localizer(r *model.Resource, base string, loaded map[string]*model.Resource) func(string) (string, bool) {
	return func(raw string) (string, bool) {
		ref, ok := resolveReference(base, raw)
		if !ok {
			return "", false
		}
		return localize(r, loaded, ref)
	}
}
