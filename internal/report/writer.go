package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/websnap/internal/model"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer renders a crawl result.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *Result) (int, error)
}

// NewWriter returns the writer for format ("text", "json", "markdown" or
// "md"). An empty format selects text.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return NewTextWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Result is what a crawl produced.
type Result struct {
	// CrawlID is the history ID of the crawl, empty when history is off.
	CrawlID string `json:"crawl_id,omitempty"`

	// Directory is the output directory.
	Directory string `json:"directory"`

	// StartedAt and FinishedAt bound the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Seeds are the seed URLs, aligned with Resources.
	Seeds []string `json:"seeds"`

	// Resources holds one output tree per seed, in seed order. A seed that
	// could not be loaded has a nil entry.
	Resources []*model.OutputObject `json:"resources"`
}

// TypeCount is the number of distinct resources of one type.
type TypeCount struct {
	Type  model.ResourceType
	Count int
}

// Failed returns the seeds that have no output tree.
func (r *Result) Failed() []string {
	var out []string
	for i, seed := range r.Seeds {
		if i >= len(r.Resources) || r.Resources[i] == nil {
			out = append(out, seed)
		}
	}
	return out
}

// Duration returns how long the crawl took.
func (r *Result) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Counts returns the number of distinct URLs per type in html, css, other,
// unknown order. Types without resources are omitted.
//
// A resource shared by several pages appears in several trees but is
// counted once.
func (r *Result) Counts() []TypeCount {
	seen := make(map[string]bool)
	counts := make(map[model.ResourceType]int)
	for _, root := range r.Resources {
		root.Walk(func(obj *model.OutputObject, _ int) {
			if seen[obj.URL] {
				return
			}
			seen[obj.URL] = true
			counts[obj.Type]++
		})
	}

	var out []TypeCount
	for _, t := range []model.ResourceType{model.TypeHTML, model.TypeCSS, model.TypeOther, model.TypeUnknown} {
		if counts[t] > 0 {
			out = append(out, TypeCount{Type: t, Count: counts[t]})
		}
	}
	return out
}

// Total returns the number of distinct resources.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Counts() {
		n += c.Count
	}
	return n
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
