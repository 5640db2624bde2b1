package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/scriptrunner/internal/render"
	"github.com/roach88/scriptrunner/internal/runner"
	"github.com/roach88/scriptrunner/internal/script"
	"github.com/roach88/scriptrunner/internal/session"
)

// EditorOptions holds flags for the editor set command.
type EditorOptions struct {
	*RootOptions
	Title          string
	Code           string
	CodeFile       string
	RequiresJQuery bool
}

// NewEditorCommand creates the editor command group.
func NewEditorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editor",
		Short: "Create or change a script through the editor",
		Long: `The editor holds one draft: either a new script or a copy of an
existing one. The draft is stored with the scripts and survives restarts
until it is saved or closed.

Examples:
  scriptrunner editor new
  scriptrunner editor set --title "Hello" --code 'alert(1)'
  scriptrunner editor save`,
	}

	cmd.AddCommand(newEditorNewCommand(rootOpts))
	cmd.AddCommand(newEditorOpenCommand(rootOpts))
	cmd.AddCommand(newEditorSetCommand(rootOpts))
	cmd.AddCommand(newEditorSaveCommand(rootOpts))
	cmd.AddCommand(newEditorCloseCommand(rootOpts))
	cmd.AddCommand(newEditorShowCommand(rootOpts))
	cmd.AddCommand(newEditorWatchCommand(rootOpts))

	return cmd
}

// showEditor writes the editor state in the configured format.
func showEditor(cmd *cobra.Command, rootOpts *RootOptions, a *app) error {
	st := a.runner.CurrentView("").Session
	if rootOpts.Format == "json" {
		return a.out.Success(st)
	}
	return render.Editor(cmd.OutOrStdout(), st)
}

func newEditorNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Open the editor on an empty draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				if err := a.runner.OpenForCreate(ctx); err != nil {
					return a.out.Fail("open editor failed", err)
				}
				return showEditor(cmd, rootOpts, a)
			})
		},
	}
}

func newEditorOpenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <id>",
		Short: "Open the editor on a stored script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				if err := a.runner.OpenForEdit(ctx, args[0]); err != nil {
					return a.out.Fail("open editor failed", err)
				}
				return showEditor(cmd, rootOpts, a)
			})
		},
	}
}

func newEditorSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditorOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set [--title t] [--code c | --code-file f] [--requires-jquery]",
		Short: "Change draft fields",
		Long: `Change the fields of the open draft. Only the flags given are changed.
The draft is written when the command exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			edit, err := draftEdit(cmd, opts)
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				if err := a.runner.EditDraft(ctx, edit); err != nil {
					return a.out.Fail("edit failed", err)
				}
				return showEditor(cmd, rootOpts, a)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "draft title")
	cmd.Flags().StringVar(&opts.Code, "code", "", "draft code")
	cmd.Flags().StringVar(&opts.CodeFile, "code-file", "", "read draft code from a file")
	cmd.Flags().BoolVar(&opts.RequiresJQuery, "requires-jquery", false, "inject jQuery before the code")
	cmd.MarkFlagsMutuallyExclusive("code", "code-file")

	return cmd
}

// draftEdit builds an edit from the flags that were set.
func draftEdit(cmd *cobra.Command, opts *EditorOptions) (session.DraftEdit, error) {
	var edit session.DraftEdit
	flags := cmd.Flags()

	if flags.Changed("title") {
		edit.Title = &opts.Title
	}
	if flags.Changed("code") {
		edit.Code = &opts.Code
	}
	if flags.Changed("code-file") {
		data, err := os.ReadFile(opts.CodeFile)
		if err != nil {
			return edit, fmt.Errorf("read code file: %w", err)
		}
		code := string(data)
		edit.Code = &code
	}
	if flags.Changed("requires-jquery") {
		edit.Options = &script.Options{RequiresJQuery: opts.RequiresJQuery}
	}
	if edit.Empty() {
		return edit, fmt.Errorf("nothing to change: give --title, --code, --code-file or --requires-jquery")
	}
	return edit, nil
}

func newEditorSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the draft and close the editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				saved, err := a.runner.Save(ctx)
				if err != nil {
					return a.out.Fail("save failed", err)
				}
				if rootOpts.Format == "json" {
					return a.out.Success(saved)
				}
				return a.out.Success(fmt.Sprintf("Saved %s (%s)", saved.ID, saved.Title))
			})
		},
	}
}

func newEditorCloseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Discard the draft and close the editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				if err := a.runner.Close(ctx); err != nil {
					return a.out.Fail("close failed", err)
				}
				return showEditor(cmd, rootOpts, a)
			})
		},
	}
}

func newEditorShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the editor state and draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(_ context.Context, a *app) error {
				return showEditor(cmd, rootOpts, a)
			})
		},
	}
}

func newEditorWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Follow a file as the draft code",
		Long: `Copy the file into the draft code now and after every change to it.
Changes are autosaved after the quiet period. Stop with Ctrl-C; a pending
change is written before exiting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, appOptions{}, func(ctx context.Context, a *app) error {
				if err := watchDraft(ctx, cmd, a, args[0]); err != nil {
					return a.out.Fail("watch failed", err)
				}
				return nil
			})
		},
	}
}

// watchDraft feeds the file into the draft until ctx is cancelled or a
// signal arrives. The directory is watched, not the file, so editors that
// replace the file on save keep being followed.
func watchDraft(ctx context.Context, cmd *cobra.Command, a *app, path string) error {
	if err := syncDraft(ctx, a.runner, path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := filepath.Clean(path)
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s. Press Ctrl-C to stop.\n", path)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped", "file", path)
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := syncDraft(ctx, a.runner, path); err != nil {
				// The file may be mid-replace; the next event retries.
				a.logger.Warn("draft not updated", "file", path, "error", err)
				continue
			}
			a.logger.Debug("draft updated", "file", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("watch error", "error", err)
		}
	}
}

func syncDraft(ctx context.Context, r *runner.Runner, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	code := string(data)
	return r.EditDraft(ctx, session.DraftEdit{Code: &code})
}
