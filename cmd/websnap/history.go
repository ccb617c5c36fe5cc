package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/websnap/internal/config"
	"github.com/nao1215/websnap/internal/database"
)

// defaultHistoryLimit is the number of crawls listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [crawl-id]",
		Short: "Show recorded crawls",
		Long: `History lists the crawls recorded by 'websnap snap'.

With a crawl ID (or a unique prefix of one) it shows every resource the
crawl saved, with its type, HTTP status, size and content digest.
--compare shows which files were added, removed or changed between two
crawls of the same site.

Examples:
  # List the 20 most recent crawls
  websnap history

  # Show the resources of one crawl
  websnap history 6f1c2a4e

  # Compare two crawls
  websnap history 6f1c2a4e --compare 91b0d3c7

  # Delete a crawl from the history
  websnap history 6f1c2a4e --delete`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of crawls to list (0 = all)")
	cmd.Flags().String("compare", "",
		"Compare the crawl with an earlier crawl ID")
	cmd.Flags().Bool("delete", false,
		"Delete the crawl from the history")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: $XDG_DATA_HOME/websnap)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	compareWith, err := flags.GetString("compare")
	if err != nil {
		return err
	}
	del, err := flags.GetBool("delete")
	if err != nil {
		return err
	}
	asJSON, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Validate arguments before opening the database.
	if len(args) == 0 && (compareWith != "" || del) {
		return errors.New("a crawl ID is required for --compare and --delete")
	}
	if compareWith != "" && del {
		return errors.New("--compare and --delete cannot be used together")
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(filepath.Join(dbDir, database.DBFilename)); errors.Is(err, os.ErrNotExist) {
		if len(args) > 0 {
			return fmt.Errorf("%w: %s", database.ErrCrawlNotFound, args[0])
		}
		fmt.Fprintln(out, "No crawls recorded yet.")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if len(args) == 0 {
		crawls, err := db.ListCrawls(ctx, limit)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, crawls)
		}
		printCrawlList(out, crawls)
		return nil
	}

	crawl, err := db.GetCrawl(ctx, args[0])
	if err != nil {
		return err
	}

	if del {
		if err := db.DeleteCrawl(ctx, crawl.ID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted crawl %s\n", crawl.ID)
		return nil
	}

	resources, err := db.ListResources(ctx, crawl.ID)
	if err != nil {
		return err
	}

	if compareWith != "" {
		previous, err := db.GetCrawl(ctx, compareWith)
		if err != nil {
			return err
		}
		previousResources, err := db.ListResources(ctx, previous.ID)
		if err != nil {
			return err
		}
		diff := compareCrawls(previous, crawl, previousResources, resources)
		if asJSON {
			return writeJSON(out, diff)
		}
		printCrawlDiff(out, diff)
		return nil
	}

	if asJSON {
		return writeJSON(out, struct {
			Crawl     *database.CrawlRecord      `json:"crawl"`
			Resources []*database.ResourceRecord `json:"resources"`
		}{crawl, resources})
	}
	printCrawl(out, crawl, resources)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// shortID returns the first block of a crawl ID, enough to address it.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func printCrawlList(w io.Writer, crawls []*database.CrawlRecord) {
	if len(crawls) == 0 {
		fmt.Fprintln(w, "No crawls recorded yet.")
		return
	}

	fmt.Fprintf(w, "Recorded crawls (%d):\n\n", len(crawls))
	fmt.Fprintf(w, "  %-8s  %-19s  %-7s  %9s  %s\n", "ID", "Date", "Status", "Resources", "Directory")
	for _, c := range crawls {
		fmt.Fprintf(w, "  %-8s  %-19s  %-7s  %9d  %s\n",
			shortID(c.ID),
			c.StartedAt.Local().Format("2006-01-02 15:04:05"),
			c.Status,
			c.ResourceCount,
			c.Directory,
		)
	}
}

func printCrawl(w io.Writer, crawl *database.CrawlRecord, resources []*database.ResourceRecord) {
	fmt.Fprintf(w, "Crawl:     %s\n", crawl.ID)
	fmt.Fprintf(w, "Started:   %s\n", crawl.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !crawl.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished:  %s\n", crawl.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Directory: %s\n", crawl.Directory)
	fmt.Fprintf(w, "Seeds:     %s\n", strings.Join(crawl.Seeds, ", "))
	fmt.Fprintf(w, "Status:    %s\n", crawl.Status)
	if crawl.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", crawl.Error)
	}

	fmt.Fprintf(w, "\nResources (%d):\n\n", len(resources))
	for _, r := range resources {
		fmt.Fprintf(w, "  %-5s  %3d  %9d  %s  %s\n",
			r.Type, r.StatusCode, r.Size, shortDigest(r.Digest), r.Filename)
		if r.ExifGPS {
			fmt.Fprintf(w, "         ! EXIF GPS position in %s\n", r.Filename)
		}
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
