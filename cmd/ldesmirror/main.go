// Command ldesmirror keeps a mirror of a remote LDES log.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ldesmirror/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ldesmirror:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
