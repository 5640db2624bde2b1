package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptrunner/internal/library"
)

// fetchTimeout bounds the library download.
const fetchTimeout = 30 * time.Second

// LibraryOptions holds flags for the library fetch command.
type LibraryOptions struct {
	*RootOptions
	URL string

	// Client overrides the HTTP client (for testing).
	Client *http.Client
}

// LibraryData is the json payload of library fetch.
type LibraryData struct {
	URL   string `json:"url"`
	Bytes int    `json:"bytes"`
}

func (d LibraryData) String() string {
	return fmt.Sprintf("Cached %d bytes from %s", d.Bytes, d.URL)
}

// NewLibraryCommand creates the library command group.
func NewLibraryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the library injected before scripts that need it",
	}
	cmd.AddCommand(newLibraryFetchCommand(rootOpts))
	return cmd
}

func newLibraryFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LibraryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the library and cache it in the store",
		Long: `Download the library (jQuery by default) and cache it in the store.
Scripts marked as needing jQuery cannot run until this has been done once.

Examples:
  scriptrunner library fetch
  scriptrunner library fetch --url https://code.jquery.com/jquery-3.7.1.min.js`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				url := opts.URL
				if url == "" {
					url = a.cfg.Library.URL
				}
				client := opts.Client
				if client == nil {
					client = &http.Client{Timeout: fetchTimeout}
				}

				fetcher := library.NewFetcher(url, client)
				a.out.VerboseLog("fetching %s", fetcher.URL())
				n, err := library.Refresh(ctx, fetcher, a.runner)
				if err != nil {
					return a.out.Fail("library fetch failed", err)
				}
				return a.out.Success(LibraryData{URL: fetcher.URL(), Bytes: n})
			})
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "library URL (default library.url from config)")

	return cmd
}
