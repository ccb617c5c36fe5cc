// Package report renders the result of a crawl.
//
// Three formats are available:
//   - TextWriter: an indented tree for the terminal
//   - JSONWriter: the output objects as JSON for other tools
//   - MarkdownWriter: a shareable summary with a type distribution chart
//
// All writers take a *Result, which wraps the output objects returned by
// the scraper together with where and when they were saved.
package report
