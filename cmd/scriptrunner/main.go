// Command scriptrunner keeps, edits and runs JavaScript snippets.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scriptrunner/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
