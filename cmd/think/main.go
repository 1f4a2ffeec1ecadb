// Command think runs forward-chaining quad rules to their fixpoint.
package main

import (
	"context"
	"os"

	"github.com/roach88/think/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
