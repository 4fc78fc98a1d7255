// Command graphedit browses and edits a concept graph from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jm289765/concept-graph-web/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand(nil).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
