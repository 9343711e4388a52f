package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/livetemplate/jsblock"
)

// blockInfo is one row of the blocks listing.
type blockInfo struct {
	File    string          `json:"file"`
	ID      string          `json:"id"`
	Line    int             `json:"line"`
	Lines   int             `json:"lines"`
	Options jsblock.Options `json:"options"`
}

func newBlocksCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "blocks <file.md|directory>...",
		Short: "List the jsblock blocks of pages and their options",
		Long: "blocks prints every jsblock fence with its id, source line and the options\n" +
			"that differ from the defaults (after frontmatter and fence settings).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := collectBlocks(args)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			return printBlocks(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// collectBlocks parses every markdown file named by paths, walking
// directories the way the server discovers pages.
func collectBlocks(paths []string) ([]blockInfo, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != p && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(name) == ".md" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
	}

	infos := make([]blockInfo, 0)
	for _, file := range files {
		page, err := jsblock.ParseFile(file)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Blocks {
			infos = append(infos, blockInfo{
				File:    filepath.ToSlash(file),
				ID:      b.ID,
				Line:    b.Line,
				Lines:   strings.Count(b.Content, "\n") + 1,
				Options: b.Options,
			})
		}
	}
	return infos, nil
}

func printBlocks(out io.Writer, infos []blockInfo) error {
	if len(infos) == 0 {
		fmt.Fprintln(out, "No jsblock blocks found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tID\tLINE\tLINES\tOPTIONS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", info.File, info.ID, info.Line, info.Lines, optionSummary(info.Options))
	}
	return tw.Flush()
}

// optionSummary lists the options that differ from the defaults as
// sorted key=value pairs, or "-" when there are none.
func optionSummary(o jsblock.Options) string {
	attrs := o.DataAttributes(jsblock.DefaultOptions())
	if len(attrs) == 0 {
		return "-"
	}
	pairs := make([]string, 0, len(attrs))
	for key, val := range attrs {
		pairs = append(pairs, strings.TrimPrefix(key, "data-")+"="+val)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}
