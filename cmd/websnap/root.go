package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	wslog "github.com/nao1215/websnap/internal/log"
)

// NewRootCmd creates the root command for websnap.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "websnap",
		Short: "Save web pages with their assets for offline browsing",
		Long: `websnap downloads web pages together with the images, stylesheets,
scripts and fonts they reference, saves everything into a new directory and
rewrites the references so the copy works offline.

Linked pages can be followed recursively, optionally limited by depth and
URL filters. Every crawl is recorded in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewSnapCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger builds the secure logger selected by the global flags. Logs go
// to the command's error stream.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	asJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		asJSON = false
	}
	if asJSON {
		return wslog.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return wslog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}
