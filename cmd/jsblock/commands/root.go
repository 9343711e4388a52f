// Package commands implements the jsblock CLI.
package commands

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
)

// Version is the CLI version.
const Version = "0.1.0-dev"

// NewRootCommand builds the command tree writing to stdout and stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "jsblock",
		Short: "Editable, runnable JavaScript blocks in markdown pages",
		Long: "jsblock turns ```js jsblock fences in markdown into editable code blocks\n" +
			"with a console and run/reset buttons.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newServeCommand(),
		newRunCommand(),
		newBlocksCommand(),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI with args (without the program name).
func Execute(args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.Execute()
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jsblock version %s\n", Version)
		},
	}
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
