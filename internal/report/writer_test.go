package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/websnap/internal/model"
)

// createTestResult builds a result with two seeds sharing a stylesheet and
// one failed seed.
func createTestResult() *Result {
	style := &model.OutputObject{
		URL: "http://example.com/style.css", Filename: "css/style.css",
		Type: model.TypeCSS, StatusCode: 200, Assets: []*model.OutputObject{},
	}
	logo := &model.OutputObject{
		URL: "http://example.com/logo.png", Filename: "img/logo.png",
		Type: model.TypeOther, StatusCode: 200, Assets: []*model.OutputObject{},
	}
	home := &model.OutputObject{
		URL: "http://example.com/", Filename: "index.html",
		Type: model.TypeHTML, StatusCode: 200, Assets: []*model.OutputObject{style, logo},
	}
	about := &model.OutputObject{
		URL: "http://example.com/about", Filename: "about.html",
		Type: model.TypeHTML, StatusCode: 404, Assets: []*model.OutputObject{style},
	}

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &Result{
		CrawlID:    "6f1c2a4e-0000-4000-8000-000000000000",
		Directory:  "mirror",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Seeds:      []string{"http://example.com/", "http://example.com/about", "http://down.example/"},
		Resources:  []*model.OutputObject{home, about, nil},
	}
}

func TestResult(t *testing.T) {
	t.Parallel()

	result := createTestResult()

	t.Run("shared resources are counted once", func(t *testing.T) {
		t.Parallel()

		counts := result.Counts()
		want := []TypeCount{
			{Type: model.TypeHTML, Count: 2},
			{Type: model.TypeCSS, Count: 1},
			{Type: model.TypeOther, Count: 1},
		}
		if len(counts) != len(want) {
			t.Fatalf("expected %v, got %v", want, counts)
		}
		for i := range want {
			if counts[i] != want[i] {
				t.Errorf("count %d: expected %v, got %v", i, want[i], counts[i])
			}
		}
		if result.Total() != 4 {
			t.Errorf("expected 4 resources, got %d", result.Total())
		}
	})

	t.Run("failed seeds", func(t *testing.T) {
		t.Parallel()

		failed := result.Failed()
		if len(failed) != 1 || failed[0] != "http://down.example/" {
			t.Errorf("unexpected failed seeds %v", failed)
		}
	})

	t.Run("duration", func(t *testing.T) {
		t.Parallel()

		if result.Duration() != 1500*time.Millisecond {
			t.Errorf("unexpected duration %v", result.Duration())
		}
		if (&Result{}).Duration() != 0 {
			t.Error("expected zero duration without timestamps")
		}
	})

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()

		empty := &Result{}
		if empty.Counts() != nil || empty.Total() != 0 || empty.Failed() != nil {
			t.Error("expected nothing for an empty result")
		}
	})
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		want   string
	}{
		{"", "*report.TextWriter"},
		{"text", "*report.TextWriter"},
		{"JSON", "*report.JSONWriter"},
		{"markdown", "*report.MarkdownWriter"},
		{"md", "*report.MarkdownWriter"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			w, err := NewWriter(tt.format, &bytes.Buffer{})
			if err != nil {
				t.Fatal(err)
			}
			if got := typeName(w); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWriter("xml", &bytes.Buffer{}); !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}

func typeName(w Writer) string {
	switch w.(type) {
	case *TextWriter:
		return "*report.TextWriter"
	case *JSONWriter:
		return "*report.JSONWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	default:
		return "unknown"
	}
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tree and summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewTextWriter(&buf).Write(createTestResult())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		output := buf.String()
		for _, want := range []string{
			"WEBSNAP RESULT",
			"Directory:  mirror",
			"Crawl ID:   6f1c2a4e",
			"Duration:   1.5s",
			"Resources:  4",
			"Failed:     1 seed(s)",
			"  [html] index.html\n",
			"    [css]  css/style.css\n",
			"[!] http://down.example/ (not saved)",
			"HTML:    2",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
		if strings.Contains(output, "http://example.com/logo.png") {
			t.Error("URLs are only shown in verbose mode")
		}
	})

	t.Run("verbose shows status and url", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewTextWriter(&buf, WithVerbose(true)).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "about.html  404 http://example.com/about") {
			t.Errorf("expected status and url\n%s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes result with metadata", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}

		var decoded struct {
			CrawlID   string                `json:"crawl_id"`
			Directory string                `json:"directory"`
			Seeds     []string              `json:"seeds"`
			Resources []*model.OutputObject `json:"resources"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Directory != "mirror" || len(decoded.Seeds) != 3 || len(decoded.Resources) != 3 {
			t.Errorf("unexpected result %+v", decoded)
		}
		if decoded.Resources[2] != nil {
			t.Error("failed seed must stay null")
		}
		home := decoded.Resources[0]
		if home.Type != model.TypeHTML || len(home.Assets) != 2 || home.Assets[0].Filename != "css/style.css" {
			t.Errorf("unexpected tree %+v", home)
		}
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("trees only", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithTreesOnly()).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}
		var trees []*model.OutputObject
		if err := json.Unmarshal(buf.Bytes(), &trees); err != nil {
			t.Fatalf("expected a JSON array: %v", err)
		}
		if len(trees) != 3 || trees[1].URL != "http://example.com/about" {
			t.Errorf("unexpected trees %+v", trees)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"directory\": \"mirror\"") {
			t.Errorf("expected indented output\n%s", buf.String())
		}
	})

	t.Run("empty assets encode as an empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		leaf := &Result{Resources: []*model.OutputObject{{URL: "http://x/", Assets: []*model.OutputObject{}}}}
		if _, err := NewJSONWriter(&buf).Write(leaf); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"assets":[]`) {
			t.Errorf("expected empty assets array\n%s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes summary, chart and files", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{
			"# websnap Report",
			"`mirror`",
			"## Resource Types",
			"```mermaid",
			"pie",
			"Resource Type Distribution",
			"## Saved Files",
			"### http://example.com/about",
			"`css/style.css`",
			"http://down.example/",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q\n%s", want, output)
			}
		}
	})

	t.Run("no chart without resources", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(&Result{Directory: "out"}); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart for an empty result")
		}
	})
}

func TestTypeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   model.ResourceType
		want string
	}{
		{model.TypeHTML, "HTML"},
		{model.TypeCSS, "CSS"},
		{model.TypeOther, "Other"},
		{model.TypeUnknown, "Unknown"},
	}
	for _, tt := range tests {
		if got := typeLabel(tt.in); got != tt.want {
			t.Errorf("typeLabel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := truncateString("short", 10); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := truncateString("http://example.com/very/long", 12); got != "http://ex..." {
		t.Errorf("unexpected %q", got)
	}
	if got := truncateString("abcdef", 2); got != "ab" {
		t.Errorf("unexpected %q", got)
	}
}
