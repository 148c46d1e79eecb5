// Command docq is the entry point for the DocQ document question-answering
// agent. It provides a CLI interface (via Cobra) for ingesting documents,
// asking questions, and running the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/raqdev/docq-go/cmd/docq/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
