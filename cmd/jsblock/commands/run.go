package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/livetemplate/jsblock"
	"github.com/livetemplate/jsblock/internal/jsrun"
	"github.com/livetemplate/jsblock/pkg/dom"
)

// scriptID is the element id a standalone script is attached under.
const scriptID = "script"

type runFlags struct {
	block   string
	timeout time.Duration
	events  bool
}

func newRunCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <file.js|file.md>",
		Short: "Run a script, or the blocks of a page, and print the console",
		Long: "run attaches a widget to a script (or to every block of a markdown page),\n" +
			"runs it and prints what it logs. Blocks marked norun are skipped unless\n" +
			"named with --block. The exit status is 1 when any script throws.",
		Example: "  jsblock run hello.js\n" +
			"  jsblock run guide.md --block intro --events",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd.OutOrStdout(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.block, "block", "b", "", "run only the block with this id")
	flags.DurationVarP(&f.timeout, "timeout", "t", 0, "interrupt each run after this long (0 uses the block's run_timeout)")
	flags.BoolVar(&f.events, "events", false, "print every widget event, not just console lines")
	return cmd
}

// failureCounter is an executor that counts the scripts it ran and the ones
// that threw.
type failureCounter struct {
	runner   *jsrun.Runner
	runs     int
	failures int
}

func (c *failureCounter) Execute(ctx context.Context, src string, out jsblock.Output) error {
	c.runs++
	if err := c.runner.Run(ctx, src, out); err != nil {
		c.failures++
		return &jsblock.ScriptError{Message: jsrun.Message(err), Err: err}
	}
	return nil
}

func runFile(out io.Writer, path string, f runFlags) error {
	exec := &failureCounter{runner: jsrun.New()}
	reg := jsblock.NewRegistry(jsblock.WithExecutor(exec))

	var widgets []*jsblock.Widget
	var err error
	if filepath.Ext(path) == ".md" {
		widgets, err = mountPage(reg, path, f.block)
	} else {
		widgets, err = mountScript(reg, path)
	}
	if err != nil {
		return err
	}

	for _, w := range widgets {
		id := w.Original().ID()
		if f.block == "" && !w.Options().Runnable {
			fmt.Fprintf(out, "── %s: skipped (norun)\n", id)
			continue
		}
		if len(widgets) > 1 {
			fmt.Fprintf(out, "── %s\n", id)
		}
		if err := runWidget(out, w, f); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}

	if exec.failures > 0 {
		return fmt.Errorf("%d of %d run(s) failed", exec.failures, exec.runs)
	}
	return nil
}

func runWidget(out io.Writer, w *jsblock.Widget, f runFlags) error {
	original := w.Original()
	if f.events {
		for _, typ := range []string{jsblock.EventRun, jsblock.EventConsole, jsblock.EventReset} {
			original.On(typ, func(ev dom.Event) {
				if len(ev.Args) > 0 {
					fmt.Fprintf(out, "[%s] %v\n", ev.Type, ev.Args[0])
				} else {
					fmt.Fprintf(out, "[%s]\n", ev.Type)
				}
			})
		}
	} else {
		original.On(jsblock.EventConsole, func(ev dom.Event) {
			fmt.Fprintln(out, ev.Args...)
		})
	}

	ctx := context.Background()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	_, err := w.RunContext(ctx)
	return err
}

// mountPage attaches widgets to a page's blocks, or to the one named by
// only.
func mountPage(reg *jsblock.Registry, path, only string) ([]*jsblock.Widget, error) {
	page, err := jsblock.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if only != "" && page.Block(only) == nil {
		return nil, fmt.Errorf("no block %q in %s", only, path)
	}

	_, widgets, err := page.Mount(reg)
	if err != nil {
		return nil, err
	}
	if only == "" {
		return widgets, nil
	}
	for _, w := range widgets {
		if w.Original().ID() == only {
			return []*jsblock.Widget{w}, nil
		}
	}
	return nil, fmt.Errorf("no block %q in %s", only, path)
}

// mountScript wraps a standalone script in a pre element and attaches to it.
func mountScript(reg *jsblock.Registry, path string) ([]*jsblock.Widget, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc := dom.NewDocument()
	pre := doc.CreateElement("pre").SetAttr("id", scriptID).SetText(string(src))
	doc.Body().Append(pre)
	return reg.Attach([]*dom.Element{pre}, nil)
}
