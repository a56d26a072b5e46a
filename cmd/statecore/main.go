// Command statecore runs and inspects the application state store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/statecore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
