package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a script",
		Long: `Delete the script with the given id. If the editor is open on it,
the editor is closed and its draft discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				if err := a.runner.Delete(ctx, args[0]); err != nil {
					return a.out.Fail("delete failed", err)
				}
				if rootOpts.Format == "json" {
					return a.out.Success(map[string]string{"deleted": args[0]})
				}
				return a.out.Success(fmt.Sprintf("Deleted %s", args[0]))
			})
		},
	}
}
