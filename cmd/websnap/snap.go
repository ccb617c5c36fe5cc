package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/websnap/internal/config"
	"github.com/nao1215/websnap/internal/database"
	"github.com/nao1215/websnap/internal/report"
	"github.com/nao1215/websnap/internal/scraper"
	"github.com/nao1215/websnap/internal/transport"
)

// errNoSeeds is returned when neither arguments nor the config file name a URL.
var errNoSeeds = errors.New("no URLs to save (pass them as arguments or set urls in the config file)")

// snapOptions holds the flags of the snap command that are not part of
// config.Config.
type snapOptions struct {
	configPath string
	format     string
	output     string
	noHistory  bool
}

// NewSnapCmd creates the snap command.
func NewSnapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snap [url...]",
		Short: "Save web pages and their assets into a directory",
		Long: `Snap downloads the given pages and everything they reference (images,
stylesheets, scripts, fonts, media), saves them into a new directory and
rewrites the references in HTML and CSS to the saved copies.

The output directory must not exist. If the crawl fails, the directory is
removed again.

Examples:
  # Save a single page
  websnap snap -d mirror https://example.com

  # Follow links two levels deep, staying on the same host
  websnap snap -d mirror -r --max-depth 2 --host example.com https://example.com

  # Sort assets into img/, css/, js/ ...
  websnap snap -d mirror --subdirectories https://example.com

  # Send a session cookie and a custom header
  websnap snap -d mirror --cookie "session=abc" -H "Accept-Language: en" https://example.com

  # Go through Tor
  websnap snap -d mirror --tor http://exampleonion.onion

  # Write a Markdown report
  websnap snap -d mirror -f markdown -o report.md https://example.com

Configuration file (.websnap.yaml) example:
  urls:
    - https://example.com
    - url: https://example.com/about
      filename: about.html
  directory: mirror
  recursive: true
  maxDepth: 1`,
		Args: cobra.ArbitraryArgs,
		RunE: runSnapCmd,
	}

	// Output flags
	cmd.Flags().StringP("directory", "d", "",
		"Output directory (must not exist)")
	cmd.Flags().String("default-filename", config.DefaultFilename,
		"File name for URLs without one")
	cmd.Flags().Bool("subdirectories", false,
		"Group saved files into img/, css/, js/, fonts/ and media/")

	// Crawl behavior flags
	cmd.Flags().BoolP("recursive", "r", false,
		"Follow <a href> links")
	cmd.Flags().Int("max-depth", config.DefaultMaxDepth,
		"Stop discovering references below this depth (-1 = unlimited)")
	cmd.Flags().StringSlice("host", nil,
		"Only download URLs on these hosts")
	cmd.Flags().StringSlice("include", nil,
		"Only download URLs whose path matches one of these glob patterns")
	cmd.Flags().StringSlice("exclude", nil,
		"Skip URLs whose path matches one of these glob patterns")

	// Request flags
	cmd.Flags().StringArrayP("header", "H", nil,
		`Request header as "Name: value" (repeatable)`)
	cmd.Flags().String("cookie", "",
		"Cookie header sent with every request")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")

	// Proxy flags
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Configuration and history flags
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .websnap.yaml or $XDG_CONFIG_HOME/websnap/config.yaml)")
	cmd.Flags().Bool("no-history", false,
		"Do not record the crawl in the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: $XDG_DATA_HOME/websnap)")

	// Report flags
	cmd.Flags().StringP("format", "f", report.FormatText,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to this file instead of stdout")

	return cmd
}

func runSnapCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSnap(ctx, cmd, cfg, opts, logger)
}

// buildConfig loads the configuration file and applies the flags the user
// set on top of it. Positional arguments replace the URLs of the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, *snapOptions, error) {
	flags := cmd.Flags()
	opts := &snapOptions{}
	var err error

	if opts.configPath, err = flags.GetString("config"); err != nil {
		return nil, nil, err
	}

	cfg := config.NewConfig()
	if _, err := config.LoadInto(cfg, opts.configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(args) > 0 {
		cfg.URLs = config.SeedsFromURLs(args...)
	}

	if flags.Changed("directory") {
		if cfg.Directory, err = flags.GetString("directory"); err != nil {
			return nil, nil, err
		}
	}
	if flags.Changed("default-filename") {
		if cfg.DefaultFilename, err = flags.GetString("default-filename"); err != nil {
			return nil, nil, err
		}
	}
	if flags.Changed("subdirectories") {
		enabled, err := flags.GetBool("subdirectories")
		if err != nil {
			return nil, nil, err
		}
		cfg.Subdirectories = nil
		if enabled {
			cfg.Subdirectories = config.DefaultSubdirectories()
		}
	}
	if flags.Changed("recursive") {
		if cfg.Recursive, err = flags.GetBool("recursive"); err != nil {
			return nil, nil, err
		}
	}
	if flags.Changed("max-depth") {
		if cfg.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return nil, nil, err
		}
	}

	if err := applyFilterFlags(cmd, cfg); err != nil {
		return nil, nil, err
	}
	if err := applyRequestFlags(cmd, cfg); err != nil {
		return nil, nil, err
	}

	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, nil, err
		}
	}
	if flags.Changed("tor") {
		if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
			return nil, nil, err
		}
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, nil, err
	}

	if opts.noHistory, err = flags.GetBool("no-history"); err != nil {
		return nil, nil, err
	}
	if !opts.noHistory {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, nil, err
		}
		if cfg.DBDir == "" {
			cfg.DBDir = config.XDGDataDir()
		}
	}

	if opts.format, err = flags.GetString("format"); err != nil {
		return nil, nil, err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return nil, nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if len(cfg.URLs) == 0 {
		return nil, nil, errNoSeeds
	}
	return cfg, opts, nil
}

// applyFilterFlags replaces the URL filter of the file when any filter flag
// is set.
func applyFilterFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if !flags.Changed("host") && !flags.Changed("include") && !flags.Changed("exclude") {
		return nil
	}

	var rules config.FilterRules
	var err error
	if rules.Hosts, err = flags.GetStringSlice("host"); err != nil {
		return err
	}
	if rules.Include, err = flags.GetStringSlice("include"); err != nil {
		return err
	}
	if rules.Exclude, err = flags.GetStringSlice("exclude"); err != nil {
		return err
	}
	cfg.URLFilter = rules.Build()
	return nil
}

// applyRequestFlags merges the request flags over the file's request options.
func applyRequestFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var override config.RequestOptions
	var err error

	if flags.Changed("header") {
		raw, err := flags.GetStringArray("header")
		if err != nil {
			return err
		}
		if override.Headers, err = parseHeaders(raw); err != nil {
			return err
		}
	}
	if flags.Changed("cookie") {
		if override.Cookie, err = flags.GetString("cookie"); err != nil {
			return err
		}
	}
	if flags.Changed("user-agent") {
		if override.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if override.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}

	cfg.Request = cfg.Request.Merge(override)
	return nil
}

// parseHeaders converts "Name: value" strings into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// runSnap performs the crawl and writes the report.
func runSnap(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts *snapOptions, logger *slog.Logger) error {
	// Reject an unknown format before crawling.
	if _, err := report.NewWriter(opts.format, io.Discard); err != nil {
		return err
	}

	scraperOpts := []scraper.Option{scraper.WithLogger(logger)}

	if cfg.UseTor {
		tor, fetcher, err := startTor(ctx, cmd, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		scraperOpts = append(scraperOpts, scraper.WithFetcher(fetcher))
	}

	var session *database.Session
	if cfg.DBDir != "" {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		session, err = db.StartCrawl(ctx, cfg.Directory, cfg.URLs.URLs())
		if err != nil {
			return err
		}
		scraperOpts = append(scraperOpts, scraper.WithRecorder(session))
	}

	s, err := scraper.New(cfg, scraperOpts...)
	if err != nil {
		err = fmt.Errorf("failed to create scraper: %w", err)
		if session != nil {
			_ = session.Finish(ctx, err) //nolint:errcheck // the creation error is reported instead
		}
		return err
	}

	started := time.Now()
	objects, scrapeErr := s.Scrape(ctx)
	finished := time.Now()

	if session != nil {
		// The crawl context may already be cancelled; the outcome is still recorded.
		if err := session.Finish(context.WithoutCancel(ctx), scrapeErr); err != nil {
			logger.Error("failed to record crawl result", "error", err)
		}
	}
	if scrapeErr != nil {
		return scrapeErr
	}

	result := &report.Result{
		Directory:  cfg.Directory,
		StartedAt:  started,
		FinishedAt: finished,
		Seeds:      cfg.URLs.URLs(),
		Resources:  objects,
	}
	if session != nil {
		result.CrawlID = session.ID()
	}

	writer, closeReport, err := openReport(cmd, opts)
	if err != nil {
		return err
	}
	defer closeReport()

	if _, err := writer.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// openReport returns the report writer for the requested format and
// destination, and a function that closes the destination.
func openReport(cmd *cobra.Command, opts *snapOptions) (report.Writer, func(), error) {
	var out io.Writer = cmd.OutOrStdout()
	closeFn := func() {}

	if opts.output != "" {
		dir := filepath.Dir(opts.output)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create report file: %w", err)
		}
		out = f
		closeFn = func() { f.Close() }
	}

	writer, err := report.NewWriter(opts.format, out)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return writer, closeFn, nil
}

// startTor starts the embedded Tor daemon and returns a client that uses it.
func startTor(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*transport.Tor, *transport.Client, error) {
	fmt.Fprintln(cmd.ErrOrStderr(), "Starting embedded Tor daemon...")
	fmt.Fprintln(cmd.ErrOrStderr(), "This may take 1-3 minutes while Tor bootstraps and connects to the network.")

	tor := transport.NewTor(cfg.TorStartupTimeout)
	if err := tor.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	logger.Info("embedded Tor daemon started", "socksAddr", tor.SocksAddr())

	proxyOpt, err := tor.ProxyOption()
	if err != nil {
		_ = tor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, err
	}

	client, err := transport.NewClient(
		proxyOpt,
		transport.WithDefaults(cfg.Request),
		transport.WithLogger(logger),
	)
	if err != nil {
		_ = tor.Stop() //nolint:errcheck // Best effort cleanup
		return nil, nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	return tor, client, nil
}
