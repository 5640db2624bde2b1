package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	First bool
	Draft bool
}

// RunData is the json payload of run.
type RunData struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	Draft bool   `json:"draft,omitempty"`
}

func (d RunData) String() string {
	switch {
	case d.Draft:
		return "Ran the editor draft"
	case d.Title != "":
		return fmt.Sprintf("Ran %s (%s)", d.ID, d.Title)
	default:
		return fmt.Sprintf("Ran %s", d.ID)
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <id> | --first <query...> | --draft",
		Short: "Run a script in the host page",
		Long: `Run a stored script, the first script matching a query, or the
unsaved editor draft. Scripts marked as needing jQuery get the cached
library injected first (see "scriptrunner library fetch").

Examples:
  scriptrunner run 0190c3e4-7d2a-7b8e-9c41-3f5a6b7c8d9e
  scriptrunner run --first hello
  scriptrunner run --draft`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.First && opts.Draft:
				return errors.New("--first and --draft are mutually exclusive")
			case opts.Draft && len(args) > 0:
				return errors.New("--draft takes no arguments")
			case opts.First && len(args) == 0:
				return errors.New("--first needs a query")
			case !opts.First && !opts.Draft && len(args) != 1:
				return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				data, err := runScript(ctx, opts, a, args)
				if err != nil {
					return a.out.Fail("run failed", err)
				}
				return a.out.Success(data)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.First, "first", false, "run the first script whose title matches the query")
	cmd.Flags().BoolVar(&opts.Draft, "draft", false, "run the open editor's draft without saving it")

	return cmd
}

func runScript(ctx context.Context, opts *RunOptions, a *app, args []string) (RunData, error) {
	switch {
	case opts.Draft:
		return RunData{Draft: true}, a.runner.RunDraft(ctx)
	case opts.First:
		s, err := a.runner.RunFirstMatch(ctx, strings.Join(args, " "))
		return RunData{ID: s.ID, Title: s.Title}, err
	default:
		return RunData{ID: args[0]}, a.runner.RunScript(ctx, args[0])
	}
}
