package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/websnap/internal/model"
)

// MarkdownWriter outputs the result in Markdown for documentation and
// sharing. The type distribution is drawn as a mermaid pie chart.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeTypes(md, result)
	w.writeResources(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *Result) {
	md.H1("websnap Report")
	md.PlainText("")

	rows := [][]string{
		{"Directory", "`" + result.Directory + "`"},
	}
	if result.CrawlID != "" {
		rows = append(rows, []string{"Crawl ID", "`" + result.CrawlID + "`"})
	}
	if !result.StartedAt.IsZero() {
		rows = append(rows,
			[]string{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			[]string{"Duration", result.Duration().Round(time.Millisecond).String()},
		)
	}
	rows = append(rows,
		[]string{"Seeds", strconv.Itoa(len(result.Seeds))},
		[]string{"Resources", strconv.Itoa(result.Total())},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if failed := result.Failed(); len(failed) > 0 {
		md.Warningf("%d seed(s) could not be saved: %s", len(failed), strings.Join(failed, ", "))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeTypes(md *markdown.Markdown, result *Result) {
	counts := result.Counts()
	if len(counts) == 0 {
		return
	}

	md.H2("Resource Types")
	md.PlainText("")

	rows := make([][]string, 0, len(counts)+1)
	for _, c := range counts {
		rows = append(rows, []string{typeLabel(c.Type), strconv.Itoa(c.Count)})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(result.Total()) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resource Type Distribution"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		chart.LabelAndIntValue(typeLabel(c.Type), uint64(c.Count)) //nolint:gosec // counts are positive
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResources(md *markdown.Markdown, result *Result) {
	md.H2("Saved Files")
	md.PlainText("")

	for i, root := range result.Resources {
		if root == nil {
			continue
		}
		title := root.URL
		if i < len(result.Seeds) && result.Seeds[i] != "" {
			title = result.Seeds[i]
		}
		md.H3(title)
		md.PlainText("")

		var rows [][]string
		root.Walk(func(obj *model.OutputObject, level int) {
			rows = append(rows, []string{
				strings.Repeat("&nbsp;&nbsp;", level) + "`" + obj.Filename + "`",
				typeLabel(obj.Type),
				strconv.Itoa(obj.StatusCode),
				truncateString(obj.URL, 80),
			})
		})
		md.Table(markdown.TableSet{
			Header: []string{"File", "Type", "Status", "URL"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [websnap](https://github.com/nao1215/websnap)*")
}

// typeLabel returns the display name of a resource type: acronyms in
// upper case, other names title-cased.
func typeLabel(t model.ResourceType) string {
	if t == model.TypeHTML || t == model.TypeCSS {
		return strings.ToUpper(t.String())
	}
	return cases.Title(language.English).String(t.String())
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
