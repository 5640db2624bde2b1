package cli

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/scriptrunner/internal/transfer"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Stdout bool
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Yes bool

	// Confirm asks before the collection is replaced. Defaults to a
	// terminal prompt.
	Confirm func(message string) (bool, error)
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export [name]",
		Short: "Export all scripts to a file",
		Long: `Write every script to a JSON file through the configured transfer
(a local directory or a MinIO bucket). The editor draft is not exported.
Names ending in .lz4 are compressed.

Examples:
  scriptrunner export
  scriptrunner export backup.json.lz4
  scriptrunner export --stdout > scripts.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := transfer.DefaultName
			if len(args) == 1 {
				name = args[0]
			}
			ao := appOptions{transfer: !opts.Stdout}
			return withApp(cmd, rootOpts, ao, func(ctx context.Context, a *app) error {
				if opts.Stdout {
					blob, err := a.runner.ExportAll(ctx)
					if err != nil {
						return a.out.Fail("export failed", err)
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(blob))
					return err
				}
				if err := a.runner.ExportTo(ctx, name); err != nil {
					return a.out.Fail("export failed", err)
				}
				if rootOpts.Format == "json" {
					return a.out.Success(map[string]string{"exported": name})
				}
				return a.out.Success(fmt.Sprintf("Exported to %s", name))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "write the export to standard output")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return newImportCommand(&ImportOptions{RootOptions: rootOpts, Confirm: surveyConfirm})
}

func newImportCommand(opts *ImportOptions) *cobra.Command {
	rootOpts := opts.RootOptions

	cmd := &cobra.Command{
		Use:   "import [name]",
		Short: "Replace all scripts with an exported file",
		Long: `Read an export through the configured transfer and replace the whole
collection with it. Scripts not in the file are lost. A file that is not a
valid export changes nothing.

Examples:
  scriptrunner import
  scriptrunner import backup.json.lz4 --yes`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := transfer.DefaultName
			if len(args) == 1 {
				name = args[0]
			}
			return withApp(cmd, rootOpts, appOptions{transfer: true}, func(ctx context.Context, a *app) error {
				if !opts.Yes {
					total := a.runner.CurrentView("").Total
					msg := fmt.Sprintf("Replace all %d scripts with the contents of %s?", total, name)
					ok, err := opts.Confirm(msg)
					if err != nil {
						return WrapExitError(ExitCommandError, "confirmation failed", err)
					}
					if !ok {
						_ = a.out.Error(CodeAborted, "import cancelled", nil)
						return NewExitError(ExitFailure, "import cancelled")
					}
				}
				if err := a.runner.ImportFrom(ctx, name); err != nil {
					return a.out.Fail("import failed", err)
				}
				total := a.runner.CurrentView("").Total
				if rootOpts.Format == "json" {
					return a.out.Success(map[string]any{"imported": name, "scripts": total})
				}
				return a.out.Success(fmt.Sprintf("Imported %d scripts from %s", total, name))
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "replace without asking")

	return cmd
}
