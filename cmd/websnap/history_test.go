package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/websnap/internal/database"
	"github.com/nao1215/websnap/internal/media"
	"github.com/nao1215/websnap/internal/model"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	if cmd.Use != "history [crawl-id]" {
		t.Errorf("expected use 'history [crawl-id]', got %q", cmd.Use)
	}

	flag := cmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("expected limit flag")
	}
	if flag.Shorthand != "n" || flag.DefValue != "20" {
		t.Errorf("unexpected limit flag %q %q", flag.Shorthand, flag.DefValue)
	}
	for _, name := range []string{"compare", "delete", "json", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "db")
		stdout, _, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout, "No crawls recorded yet.") {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("unknown crawl without database", func(t *testing.T) {
		t.Parallel()

		_, _, err := execute(t, "history", "--db-dir", t.TempDir(), "abc")
		if !errors.Is(err, database.ErrCrawlNotFound) {
			t.Errorf("expected ErrCrawlNotFound, got %v", err)
		}
	})

	t.Run("flag combinations", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		if _, _, err := execute(t, "history", "--db-dir", dbDir, "--delete"); err == nil {
			t.Error("expected error for --delete without a crawl ID")
		}
		if _, _, err := execute(t, "history", "--db-dir", dbDir, "abc", "--delete", "--compare", "def"); err == nil {
			t.Error("expected error for --delete with --compare")
		}
	})

	t.Run("show, compare and delete", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		previousID, currentID := seedHistory(t, dbDir)

		stdout, _, err := execute(t, "history", "--db-dir", dbDir, shortID(previousID))
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"Status:    done", "Resources (3)", "img/photo.jpg", "EXIF GPS position in img/photo.jpg"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q\n%s", want, stdout)
			}
		}

		stdout, _, err = execute(t, "history", "--db-dir", dbDir, currentID, "--compare", previousID)
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{
			"Added (1):\n  + http://example.com/new.html",
			"Removed (1):\n  - http://example.com/img/photo.jpg",
			"Changed (1):\n  ~ http://example.com/ (11 -> 12 bytes)",
			"1 resources unchanged",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q\n%s", want, stdout)
			}
		}

		stdout, _, err = execute(t, "history", "--db-dir", dbDir, previousID, "--delete")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout, "Deleted crawl "+previousID) {
			t.Errorf("unexpected output %q", stdout)
		}

		_, _, err = execute(t, "history", "--db-dir", dbDir, previousID)
		if !errors.Is(err, database.ErrCrawlNotFound) {
			t.Errorf("expected deleted crawl to be gone, got %v", err)
		}
	})
}

// savedFile is a resource recorded by seedHistory.
type savedFile struct {
	url, filename, content string
	typ                    model.ResourceType
	gps                    bool
}

// seedHistory records two crawls of the same site directly in the database
// and returns their IDs.
func seedHistory(t *testing.T, dbDir string) (string, string) {
	t.Helper()

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	record := func(files ...savedFile) string {
		t.Helper()
		session, err := db.StartCrawl(ctx, "mirror", []string{"http://example.com/"})
		if err != nil {
			t.Fatal(err)
		}
		for _, f := range files {
			r := model.NewResource(f.url, f.filename)
			r.SetResponse([]byte(f.content), "application/octet-stream", 200)
			r.SetType(f.typ)
			if err := session.RecordResource(ctx, r, media.Summary{Tags: 3, HasGPS: f.gps}); err != nil {
				t.Fatal(err)
			}
		}
		if err := session.Finish(ctx, nil); err != nil {
			t.Fatal(err)
		}
		return session.ID()
	}

	previous := record(
		savedFile{"http://example.com/", "index.html", "home v1 ...", model.TypeHTML, false},
		savedFile{"http://example.com/style.css", "style.css", "body{}", model.TypeCSS, false},
		savedFile{"http://example.com/img/photo.jpg", "img/photo.jpg", "jpeg", model.TypeOther, true},
	)
	current := record(
		savedFile{"http://example.com/", "index.html", "home v2 ....", model.TypeHTML, false},
		savedFile{"http://example.com/style.css", "style.css", "body{}", model.TypeCSS, false},
		savedFile{"http://example.com/new.html", "new.html", "new", model.TypeHTML, false},
	)
	return previous, current
}
