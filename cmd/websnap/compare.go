package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/nao1215/websnap/internal/database"
)

// crawlDiff lists how the saved resources of two crawls differ, matched by
// URL.
type crawlDiff struct {
	Previous  string              `json:"previous"`
	Current   string              `json:"current"`
	Added     []string            `json:"added"`
	Removed   []string            `json:"removed"`
	Changed   []resourceChange    `json:"changed"`
	Unchanged int                 `json:"unchanged"`
	Statuses  []statusChangeEntry `json:"status_changes,omitempty"`
}

// resourceChange is a URL whose saved content differs.
type resourceChange struct {
	URL          string `json:"url"`
	PreviousSize int    `json:"previous_size"`
	CurrentSize  int    `json:"current_size"`
}

// statusChangeEntry is a URL whose HTTP status differs.
type statusChangeEntry struct {
	URL      string `json:"url"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

// compareCrawls matches the resources of two crawls by URL. Content is
// compared by digest. All lists are sorted by URL.
func compareCrawls(previous, current *database.CrawlRecord, previousRes, currentRes []*database.ResourceRecord) *crawlDiff {
	diff := &crawlDiff{
		Previous: previous.ID,
		Current:  current.ID,
		Added:    []string{},
		Removed:  []string{},
		Changed:  []resourceChange{},
	}

	before := make(map[string]*database.ResourceRecord, len(previousRes))
	for _, r := range previousRes {
		before[r.URL] = r
	}

	seen := make(map[string]bool, len(currentRes))
	for _, r := range currentRes {
		seen[r.URL] = true
		old, ok := before[r.URL]
		if !ok {
			diff.Added = append(diff.Added, r.URL)
			continue
		}
		if old.StatusCode != r.StatusCode {
			diff.Statuses = append(diff.Statuses, statusChangeEntry{URL: r.URL, Previous: old.StatusCode, Current: r.StatusCode})
		}
		if old.Digest != r.Digest {
			diff.Changed = append(diff.Changed, resourceChange{URL: r.URL, PreviousSize: old.Size, CurrentSize: r.Size})
			continue
		}
		diff.Unchanged++
	}
	for _, r := range previousRes {
		if !seen[r.URL] {
			diff.Removed = append(diff.Removed, r.URL)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool { return diff.Changed[i].URL < diff.Changed[j].URL })
	sort.Slice(diff.Statuses, func(i, j int) bool { return diff.Statuses[i].URL < diff.Statuses[j].URL })

	return diff
}

// identical reports whether the crawls saved the same content.
func (d *crawlDiff) identical() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 && len(d.Statuses) == 0
}

func printCrawlDiff(w io.Writer, d *crawlDiff) {
	fmt.Fprintf(w, "Comparing crawl %s with %s\n\n", shortID(d.Current), shortID(d.Previous))

	if d.identical() {
		fmt.Fprintf(w, "No differences (%d resources unchanged)\n", d.Unchanged)
		return
	}

	if len(d.Added) > 0 {
		fmt.Fprintf(w, "Added (%d):\n", len(d.Added))
		for _, u := range d.Added {
			fmt.Fprintf(w, "  + %s\n", u)
		}
		fmt.Fprintln(w)
	}
	if len(d.Removed) > 0 {
		fmt.Fprintf(w, "Removed (%d):\n", len(d.Removed))
		for _, u := range d.Removed {
			fmt.Fprintf(w, "  - %s\n", u)
		}
		fmt.Fprintln(w)
	}
	if len(d.Changed) > 0 {
		fmt.Fprintf(w, "Changed (%d):\n", len(d.Changed))
		for _, c := range d.Changed {
			fmt.Fprintf(w, "  ~ %s (%d -> %d bytes)\n", c.URL, c.PreviousSize, c.CurrentSize)
		}
		fmt.Fprintln(w)
	}
	if len(d.Statuses) > 0 {
		fmt.Fprintf(w, "Status changed (%d):\n", len(d.Statuses))
		for _, s := range d.Statuses {
			fmt.Fprintf(w, "  ! %s (%d -> %d)\n", s.URL, s.Previous, s.Current)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d resources unchanged\n", d.Unchanged)
}
