// Command jsblock serves, runs and inspects markdown pages with editable,
// runnable JavaScript blocks.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/jsblock/cmd/jsblock/commands"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := commands.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
