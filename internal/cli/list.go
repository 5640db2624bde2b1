package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/scriptrunner/internal/render"
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
)

// ListData is the json payload of list.
type ListData struct {
	Query   string          `json:"query"`
	Scripts []script.Script `json:"scripts"`
	Total   int             `json:"total"`
	Session session.State   `json:"session"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list [query...]",
		Aliases: []string{"ls"},
		Short:   "List scripts, optionally filtered by title",
		Long: `List stored scripts, newest first, and show the editor state.

Every query word must appear in the title, ignoring case.

Examples:
  scriptrunner list
  scriptrunner list he lo
  scriptrunner list --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withApp(cmd, rootOpts, appOptions{}, func(_ context.Context, a *app) error {
				view := a.runner.CurrentView(query)
				if rootOpts.Format == "json" {
					scripts := view.Scripts
					if scripts == nil {
						scripts = []script.Script{}
					}
					return a.out.Success(ListData{
						Query:   view.Query,
						Scripts: scripts,
						Total:   view.Total,
						Session: view.Session,
					})
				}
				return render.Text(cmd.OutOrStdout(), view)
			})
		},
	}
}
