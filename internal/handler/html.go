package handler

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/websnap/internal/model"
	"github.com/nao1215/websnap/internal/urlutil"
)

// HTML loads the references selected by the configured source rules and
// rewrites the matching attributes to local paths.
type HTML struct{}

// Name implements Handler.
func (HTML) Name() string { return "html" }

// attrTarget is one attribute value selected by a source rule.
type attrTarget struct {
	sel  *goquery.Selection
	attr string
	// candidates holds the srcset candidates, or the whole value.
	candidates []srcsetCandidate
	srcset     bool
}

// Handle implements Handler.
func (HTML) Handle(ctx context.Context, hc Context, r *model.Resource, content []byte) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	base := documentBase(doc, r.URL())

	var targets []attrTarget
	var refs []reference
	for _, rule := range hc.Sources() {
		srcset := strings.EqualFold(rule.Attribute, "srcset")
		doc.Find(rule.Selector).Each(func(_ int, s *goquery.Selection) {
			value, ok := s.Attr(rule.Attribute)
			if !ok {
				return
			}

			t := attrTarget{sel: s, attr: rule.Attribute, srcset: srcset}
			if srcset {
				t.candidates = parseSrcset(value)
			} else {
				t.candidates = []srcsetCandidate{{url: strings.TrimSpace(value)}}
			}

			found := false
			for _, c := range t.candidates {
				if ref, ok := resolveReference(base, c.url); ok {
					refs = append(refs, ref)
					found = true
				}
			}
			if found {
				targets = append(targets, t)
			}
		})
	}
	if len(refs) == 0 {
		return content, nil
	}

	loaded, err := loadChildren(ctx, hc, r, refs)
	if err != nil {
		return nil, err
	}

	changed := false
	for _, t := range targets {
		rewritten := false
		for i, c := range t.candidates {
			ref, ok := resolveReference(base, c.url)
			if !ok {
				continue
			}
			if local, ok := localize(r, loaded, ref); ok {
				t.candidates[i].url = local
				rewritten = true
			}
		}
		if !rewritten {
			continue
		}
		changed = true
		if t.srcset {
			t.sel.SetAttr(t.attr, formatSrcset(t.candidates))
		} else {
			t.sel.SetAttr(t.attr, t.candidates[0].url)
		}
	}
	if !changed {
		return content, nil
	}

	// Local paths are relative to the file, not to the original base.
	doc.Find("base[href]").Remove()

	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return []byte(html), nil
}

// documentBase returns the URL references in doc resolve against: the
// first <base href>, resolved against pageURL, or pageURL itself.
func documentBase(doc *goquery.Document, pageURL string) string {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return pageURL
	}
	if base := urlutil.Resolve(pageURL, href); base != "" {
		return base
	}
	return pageURL
}

type srcsetCandidate struct {
	url        string
	descriptor string
}

// parseSrcset splits a srcset value into its candidates.
func parseSrcset(value string) []srcsetCandidate {
	var out []srcsetCandidate
	for _, part := range strings.Split(value, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		out = append(out, srcsetCandidate{
			url:        fields[0],
			descriptor: strings.Join(fields[1:], " "),
		})
	}
	return out
}

func formatSrcset(candidates []srcsetCandidate) string {
	parts := make([]string, len(candidates))
	for i, c := range candidates {
		if c.descriptor == "" {
			parts[i] = c.url
		} else {
			parts[i] = c.url + " " + c.descriptor
		}
	}
	return strings.Join(parts, ", ")
}
