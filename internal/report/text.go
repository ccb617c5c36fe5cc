package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/websnap/internal/model"
)

const ruleWidth = 70

// TextWriter outputs an indented resource tree for the terminal.
type TextWriter struct {
	baseWriter

	// verbose adds the HTTP status and URL to every line.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the result in human-readable format.
func (w *TextWriter) Write(result *Result) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeTrees(&sb, result)
	w.writeCounts(&sb, result)
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *TextWriter) writeHeader(sb *strings.Builder, result *Result) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                           WEBSNAP RESULT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Directory:  %s\n", result.Directory)
	if result.CrawlID != "" {
		fmt.Fprintf(sb, "Crawl ID:   %s\n", result.CrawlID)
	}
	if !result.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:    %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(sb, "Duration:   %s\n", result.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(sb, "Resources:  %d\n", result.Total())
	if failed := result.Failed(); len(failed) > 0 {
		fmt.Fprintf(sb, "Failed:     %d seed(s)\n", len(failed))
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *TextWriter) writeTrees(sb *strings.Builder, result *Result) {
	w.writeSection(sb, "SAVED FILES")

	for i, root := range result.Resources {
		if root == nil {
			seed := ""
			if i < len(result.Seeds) {
				seed = result.Seeds[i]
			}
			fmt.Fprintf(sb, "  [!] %s (not saved)\n", seed)
			continue
		}
		root.Walk(func(obj *model.OutputObject, level int) {
			sb.WriteString(strings.Repeat("  ", level+1))
			fmt.Fprintf(sb, "%-6s %s", "["+obj.Type.String()+"]", obj.Filename)
			if w.verbose {
				fmt.Fprintf(sb, "  %d %s", obj.StatusCode, obj.URL)
			}
			sb.WriteString("\n")
		})
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeCounts(sb *strings.Builder, result *Result) {
	counts := result.Counts()
	if len(counts) == 0 {
		return
	}

	w.writeSection(sb, "TYPES")
	for _, c := range counts {
		fmt.Fprintf(sb, "  %-8s %d\n", strings.ToUpper(c.Type.String())+":", c.Count)
	}
	sb.WriteString("\n")
}
